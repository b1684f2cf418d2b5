package auth

import (
	"crypto/subtle"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
)

// Service implements the authorization gate for import starts and crawler
// control. Authentication proper (users, tenants, subdomains) lives outside
// this service; here a shared API key decides who may trigger work.
type Service struct {
	apiKey string
	logger arbor.ILogger
}

// NewService creates a new authorization service
func NewService(config *common.AuthConfig, logger arbor.ILogger) interfaces.AuthService {
	if config.APIKey == "" {
		logger.Warn().Msg("No API key configured - import and crawler control are unrestricted")
	}
	return &Service{
		apiKey: config.APIKey,
		logger: logger,
	}
}

// Authorize reports whether the presented token may start imports or control
// the crawler. An empty configured key disables the gate.
func (s *Service) Authorize(token string) bool {
	if s.apiKey == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.apiKey)) == 1
}
