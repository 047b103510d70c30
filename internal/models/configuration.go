package models

import "time"

// Master configuration keys consulted by the workflow engine.
const (
	ConfigKeyMaxEscalationLevel = "MAX_ESCALATION_LEVEL"
	ConfigKeySLAClosureDays     = "SLA_CLOSURE_DAYS"
	ConfigKeyDefaultPriority    = "DEFAULT_PRIORITY"
)

// Fallback values used when a key is missing or malformed.
const (
	DefaultMaxEscalationLevel = 3
	DefaultSLAClosureDays     = 7
	DefaultGrievancePriority  = PriorityMedium
)

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeInteger  ConfigurationType = "INTEGER"
	ConfigurationTypePriority ConfigurationType = "PRIORITY"
)

// Configuration represents a master_configs row.
type Configuration struct {
	Key         string    `db:"key" json:"key"`
	Value       string    `db:"value" json:"value"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedBy   *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ConfigurationDefinition describes a known key.
type ConfigurationDefinition struct {
	Key          string
	Type         ConfigurationType
	DefaultValue string
	Description  string
	// Min bounds INTEGER values.
	Min          int
}

// ConfigurationDefinitions lists the keys administrators may edit.
var ConfigurationDefinitions = map[string]ConfigurationDefinition{
	ConfigKeyMaxEscalationLevel: {
		Key:          ConfigKeyMaxEscalationLevel,
		Type:         ConfigurationTypeInteger,
		DefaultValue: "3",
		Description:  "Highest escalation level a grievance may reach",
	},
	ConfigKeySLAClosureDays: {
		Key:          ConfigKeySLAClosureDays,
		Type:         ConfigurationTypeInteger,
		DefaultValue: "7",
		Description:  "Days after resolution before a grievance is closed automatically",
		Min:          1,
	},
	ConfigKeyDefaultPriority: {
		Key:          ConfigKeyDefaultPriority,
		Type:         ConfigurationTypePriority,
		DefaultValue: string(PriorityMedium),
		Description:  "Priority applied when a citizen does not choose one",
	},
}
