package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/scribe/internal/envvar"
)

// Environment is the runtime environment the server operates in.
type Environment string

const (
	// Development is the default environment.
	Development Environment = "development"

	// Production is the environment for deployed instances.
	Production Environment = "production"
)

// FromEnv resolves the environment from SCRIBE_ENV.
func FromEnv() Environment {
	switch strings.ToLower(os.Getenv(envvar.ScribeEnv)) {
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether the environment is production.
func (e Environment) IsProduction() bool {
	return e == Production
}
