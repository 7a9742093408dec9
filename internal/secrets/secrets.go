package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider hands out credential values for probes. Implementations must be
// safe for concurrent use; a missing credential is reported via NotFoundError
// so callers can degrade instead of failing.
type Provider interface {
	// Get retrieves a credential value by name
	Get(ctx context.Context, name string) (string, error)
}

// NotFoundError indicates the named credential is not configured
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret %q not configured", e.Name)
}

// IsNotFound reports whether err is a missing-credential error
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// EnvProvider reads credentials from environment variables, optionally
// namespaced with a prefix (e.g. prefix "TRADEAUDIT" maps "FMP_API_KEY"
// to TRADEAUDIT_FMP_API_KEY, falling back to the bare name).
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-variable credential provider
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

// Get retrieves a credential from the environment
func (p *EnvProvider) Get(_ context.Context, name string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if p.prefix != "" {
		if v := os.Getenv(p.prefix + "_" + key); v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", &NotFoundError{Name: name}
}

// Redact masks a credential for log output, keeping only a short suffix
func Redact(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
