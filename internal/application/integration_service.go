package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IntegrationService manages tenant connections to commerce platforms
type IntegrationService struct {
	integrationRepo ports.IntegrationRepository
	configRepo      ports.SyncConfigRepository
	credentials     *CredentialsService
	logger          zerolog.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	integrationRepo ports.IntegrationRepository,
	configRepo ports.SyncConfigRepository,
	credentials *CredentialsService,
	logger zerolog.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrationRepo: integrationRepo,
		configRepo:      configRepo,
		credentials:     credentials,
		logger:          logger,
	}
}

// ConnectInput represents input for connecting a store
type ConnectInput struct {
	UserID          string             `json:"user_id"`
	Platform        domain.Platform    `json:"platform"`
	StoreURL        string             `json:"store_url"`
	StoreIdentifier string             `json:"store_identifier"`
	WebhookSecret   string             `json:"webhook_secret"`
	Credentials     domain.Credentials `json:"credentials"`
}

// Connect creates an integration with a default sync configuration. Reconnecting
// the same store refreshes its credentials and reactivates it.
func (s *IntegrationService) Connect(ctx context.Context, input ConnectInput) (*domain.Integration, error) {
	input.Platform = domain.ParsePlatform(string(input.Platform))
	input.StoreIdentifier = strings.TrimSpace(input.StoreIdentifier)
	if input.UserID == "" || input.Platform == "" || input.StoreIdentifier == "" {
		return nil, errors.New("user_id, platform and store_identifier are required")
	}

	sealed, err := s.credentials.SealCredentials(input.Credentials)
	if err != nil {
		return nil, err
	}

	existing, err := s.integrationRepo.GetByStoreIdentifier(ctx, input.Platform, input.StoreIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing integration: %w", err)
	}
	if existing != nil {
		if existing.UserID != input.UserID {
			return nil, fmt.Errorf("store %s is already connected to another account", input.StoreIdentifier)
		}
		existing.EncryptedCredentials = sealed
		existing.WebhookSecret = input.WebhookSecret
		existing.Active = true
		existing.ConsecutiveFailures = 0
		existing.UpdatedAt = time.Now().UTC()
		if err := s.integrationRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update integration: %w", err)
		}
		s.logger.Info().
			Str("integrationId", existing.ID).
			Str("platform", string(existing.Platform)).
			Str("store", existing.StoreIdentifier).
			Msg("Integration reconnected")
		return existing, nil
	}

	now := time.Now().UTC()
	integration := &domain.Integration{
		ID:                   uuid.NewString(),
		UserID:               input.UserID,
		Platform:             input.Platform,
		StoreURL:             input.StoreURL,
		StoreIdentifier:      input.StoreIdentifier,
		EncryptedCredentials: sealed,
		WebhookSecret:        input.WebhookSecret,
		Active:               true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.integrationRepo.Create(ctx, integration); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create integration")
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	config := &domain.SyncConfig{
		ID:            uuid.NewString(),
		UserID:        integration.UserID,
		IntegrationID: integration.ID,
		Platform:      integration.Platform,
		SyncProducts:  true,
		SyncPrices:    true,
		SyncStock:     true,
		SyncOrders:    true,
		Direction:     domain.DirectionBidirectional,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.configRepo.Upsert(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to create sync config: %w", err)
	}

	s.logger.Info().
		Str("integrationId", integration.ID).
		Str("userId", integration.UserID).
		Str("platform", string(integration.Platform)).
		Str("store", integration.StoreIdentifier).
		Msg("Created new integration")
	return integration, nil
}

// Get retrieves an integration by id
func (s *IntegrationService) Get(ctx context.Context, id string) (*domain.Integration, error) {
	integration, err := s.integrationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	if integration == nil {
		return nil, domain.ErrIntegrationNotFound
	}
	return integration, nil
}

// List returns integrations matching the filter
func (s *IntegrationService) List(ctx context.Context, filter domain.IntegrationFilter) ([]*domain.Integration, error) {
	integrations, err := s.integrationRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	return integrations, nil
}

// Deactivate soft-disables an integration. The record is kept for audit purposes.
func (s *IntegrationService) Deactivate(ctx context.Context, id string) error {
	if err := s.integrationRepo.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate integration: %w", err)
	}
	s.logger.Info().Str("integrationId", id).Msg("Deactivated integration")
	return nil
}

// UpdateSyncConfig replaces the toggles of an integration's sync configuration
func (s *IntegrationService) UpdateSyncConfig(ctx context.Context, config *domain.SyncConfig) (*domain.SyncConfig, error) {
	integration, err := s.Get(ctx, config.IntegrationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.configRepo.GetByIntegration(ctx, integration.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync config: %w", err)
	}
	now := time.Now().UTC()
	if existing != nil {
		config.ID = existing.ID
		config.CreatedAt = existing.CreatedAt
		config.LastFullSyncAt = existing.LastFullSyncAt
	} else {
		config.ID = uuid.NewString()
		config.CreatedAt = now
	}
	config.UserID = integration.UserID
	config.Platform = integration.Platform
	config.UpdatedAt = now

	if err := s.configRepo.Upsert(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to save sync config: %w", err)
	}
	return config, nil
}
