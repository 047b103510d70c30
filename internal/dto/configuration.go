package dto

// ConfigurationItem represents a master configuration entry exposed via API.
type ConfigurationItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
	UpdatedBy   string `json:"updated_by,omitempty"`
}

// UpdateConfigurationRequest describes payload for updating a single configuration.
type UpdateConfigurationRequest struct {
	Value string `json:"value" validate:"required"`
}
