package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type configurationRepository interface {
	List(ctx context.Context) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, cfg *models.Configuration) error
}

type configurationInvalidator interface {
	Invalidate(ctx context.Context, key string)
}

// ConfigurationService lets administrators read and tune master configuration.
type ConfigurationService struct {
	repo        configurationRepository
	tx          txProvider
	audit       auditWriter
	users       grievanceUserReader
	invalidator configurationInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, tx txProvider, audit auditWriter, users grievanceUserReader, invalidator configurationInvalidator, validate *validator.Validate, logger *zap.Logger) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{
		repo:        repo,
		tx:          tx,
		audit:       audit,
		users:       users,
		invalidator: invalidator,
		validator:   validate,
		logger:      logger,
	}
}

// List returns every known key with its stored or default value.
func (s *ConfigurationService) List(ctx context.Context, actorID string) ([]dto.ConfigurationItem, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	stored := make(map[string]models.Configuration, len(rows))
	for _, row := range rows {
		stored[row.Key] = row
	}

	keys := knownKeys()
	items := make([]dto.ConfigurationItem, 0, len(keys))
	for _, key := range keys {
		def := models.ConfigurationDefinitions[key]
		if row, ok := stored[key]; ok {
			items = append(items, toConfigurationItem(def, &row))
			continue
		}
		items = append(items, toConfigurationItem(def, nil))
	}
	return items, nil
}

// Get retrieves a single configuration.
func (s *ConfigurationService) Get(ctx context.Context, actorID, key string) (*dto.ConfigurationItem, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	def, err := requireKnownKey(key)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx, def.Key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			item := toConfigurationItem(def, nil)
			return &item, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
	}
	item := toConfigurationItem(def, cfg)
	return &item, nil
}

// Update validates and stores a new value, audits the change and drops the
// cached copy so the next workflow operation reads it.
func (s *ConfigurationService) Update(ctx context.Context, actorID, key string, req dto.UpdateConfigurationRequest) (item *dto.ConfigurationItem, err error) {
	if err = s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
		return nil, err
	}
	def, err := requireKnownKey(key)
	if err != nil {
		return nil, err
	}
	value, err := normalizeConfigValue(def, req.Value)
	if err != nil {
		return nil, err
	}

	previous := def.DefaultValue
	prev, err := s.repo.Get(ctx, def.Key)
	switch {
	case err == nil:
		previous = prev.Value
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	default:
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch configuration")
		return nil, err
	}

	if s.tx == nil {
		err = appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
		return nil, err
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cfg := &models.Configuration{
		Key:         def.Key,
		Value:       value,
		Description: strPtr(def.Description),
		UpdatedBy:   strPtr(actorID),
	}
	if err = s.repo.Upsert(ctx, tx, cfg); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
		return nil, err
	}

	details, _ := json.Marshal(map[string]string{"key": def.Key, "old_value": previous, "new_value": value})
	entry := &models.AuditLog{
		Action:      fmt.Sprintf("Configuration %s updated from %s to %s", def.Key, previous, value),
		ActionType:  models.AuditActionConfigUpdate,
		PerformedBy: actorID,
		Details:     types.JSONText(details),
	}
	if err = s.audit.Create(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record configuration audit")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit configuration")
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, def.Key)
	}
	s.logger.Info("master configuration updated", zap.String("key", def.Key), zap.String("value", value), zap.String("updated_by", actorID))

	result := toConfigurationItem(def, cfg)
	return &result, nil
}

func (s *ConfigurationService) requireAdmin(ctx context.Context, actorID string) error {
	actor, err := lookupActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	return Authorize(actor, Requirement{Roles: []models.UserRole{models.RoleAdmin}})
}

func requireKnownKey(key string) (models.ConfigurationDefinition, error) {
	def, ok := models.ConfigurationDefinitions[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return models.ConfigurationDefinition{}, appErrors.Clone(appErrors.ErrValidation, "unsupported configuration key")
	}
	return def, nil
}

func normalizeConfigValue(def models.ConfigurationDefinition, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch def.Type {
	case models.ConfigurationTypeInteger:
		value, err := strconv.Atoi(raw)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects an integer", def.Key))
		}
		if value < def.Min {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be at least %d", def.Key, def.Min))
		}
		return strconv.Itoa(value), nil
	case models.ConfigurationTypePriority:
		priority, ok := models.ParsePriority(raw)
		if !ok {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects one of low, medium, high, urgent", def.Key))
		}
		return string(priority), nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported configuration type")
	}
}

func toConfigurationItem(def models.ConfigurationDefinition, cfg *models.Configuration) dto.ConfigurationItem {
	item := dto.ConfigurationItem{
		Key:         def.Key,
		Value:       def.DefaultValue,
		Type:        string(def.Type),
		Description: def.Description,
	}
	if cfg == nil {
		return item
	}
	item.Value = cfg.Value
	if cfg.Description != nil && *cfg.Description != "" {
		item.Description = *cfg.Description
	}
	if cfg.UpdatedBy != nil {
		item.UpdatedBy = *cfg.UpdatedBy
	}
	return item
}

func knownKeys() []string {
	keys := make([]string, 0, len(models.ConfigurationDefinitions))
	for key := range models.ConfigurationDefinitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
