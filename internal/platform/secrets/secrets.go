package secrets

import (
	"os"
	"strings"
)

// Store resolves named credentials. The pipeline consumes API keys through
// this boundary without knowing where they live.
type Store interface {
	// Get returns the secret value and whether it was present.
	Get(name string) (string, bool)
}

// EnvStore resolves secrets from the environment. A NAME_FILE variable
// pointing at a file takes precedence over a plain NAME variable, which
// keeps raw credentials out of the process environment in container
// deployments.
type EnvStore struct{}

// NewEnvStore creates an environment-backed secret store.
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// Get implements Store.
func (e *EnvStore) Get(name string) (string, bool) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				return v, true
			}
		}
	}
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	return "", false
}

var _ Store = (*EnvStore)(nil)
