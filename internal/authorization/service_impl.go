package authorization

import (
	"strings"

	"github.com/unselab/saju/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Authorizer answers the single privilege question this service has:
// whether a user bypasses quota and point gating. Backed by configuration
// so deployments can swap the allow-list without code changes.
type Authorizer interface {
	Privileged(email string) bool
}

type service struct {
	log     *zap.Logger
	allowed map[string]struct{}
}

// NewService builds the config-backed authorizer.
func NewService(cfg config.Config, log *zap.Logger) Authorizer {
	allowed := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &service{
		log:     log.Named("authorization"),
		allowed: allowed,
	}
}

func (s *service) Privileged(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := s.allowed[email]
	return ok
}

// Module wires the authorizer.
var Module = fx.Module("authorization",
	fx.Provide(NewService),
)
