package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/rs/zerolog"
)

// CredentialsService seals and opens per-integration platform credentials
type CredentialsService struct {
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(encryptionService ports.EncryptionService, logger zerolog.Logger) *CredentialsService {
	return &CredentialsService{
		encryptionSvc: encryptionService,
		logger:        logger,
	}
}

// SealCredentials encrypts credentials for storage on the integration record
func (s *CredentialsService) SealCredentials(creds domain.Credentials) (string, error) {
	if len(creds) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	sealed, err := s.encryptionSvc.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	return sealed, nil
}

// Credentials decrypts the integration's credentials. Older records hold a bare
// access token rather than a JSON document; both are accepted.
func (s *CredentialsService) Credentials(_ context.Context, integration *domain.Integration) (domain.Credentials, error) {
	if integration == nil || integration.EncryptedCredentials == "" {
		return nil, domain.ErrMissingCredentials
	}

	plaintext, err := s.encryptionSvc.Decrypt(integration.EncryptedCredentials)
	if err != nil {
		s.logger.Error().Err(err).Str("integrationId", integration.ID).Msg("Failed to decrypt credentials")
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, domain.ErrMissingCredentials
	}
	if !strings.HasPrefix(plaintext, "{") {
		return domain.Credentials{"access_token": plaintext}, nil
	}

	var creds domain.Credentials
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, domain.ErrMissingCredentials
	}
	return creds, nil
}

var _ ports.CredentialProvider = (*CredentialsService)(nil)
