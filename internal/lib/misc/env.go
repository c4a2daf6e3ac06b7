package misc

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnvSettings layers .env.local over .env - local overrides win because
// godotenv never replaces a key that's already set.
func LoadEnvSettings(logger *slog.Logger) {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			Debugf(logger, "loaded env file:%s", name)
		}
	}
}
