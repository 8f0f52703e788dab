package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ValidateAPI checks the settings used by the API server. The server reads
// from the report index, so the index database must be usable.
func (c *Config) ValidateAPI() error {
	if c.API.Listen == "" {
		return fmt.Errorf("api.listen is required")
	}

	if err := c.Index.Database.Validate(); err != nil {
		return fmt.Errorf("index.database: %w", err)
	}

	if c.API.RateLimit.Enabled && c.API.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("api.rate_limit.requests_per_minute must be positive")
	}

	if c.API.ShutdownTimeout < 0 {
		return fmt.Errorf("api.shutdown_timeout must not be negative")
	}

	if c.API.Auth.Basic.Enabled {
		if len(c.API.Auth.Basic.Users) == 0 {
			return fmt.Errorf("api.auth.basic: at least one user is required")
		}

		seen := make(map[string]struct{}, len(c.API.Auth.Basic.Users))

		for i, u := range c.API.Auth.Basic.Users {
			if u.Username == "" {
				return fmt.Errorf("api.auth.basic.users[%d]: username is required", i)
			}

			if _, ok := seen[u.Username]; ok {
				return fmt.Errorf("api.auth.basic.users[%d]: duplicate username %q", i, u.Username)
			}

			seen[u.Username] = struct{}{}

			if _, err := bcrypt.Cost([]byte(u.Password)); err != nil {
				return fmt.Errorf("api.auth.basic.users[%d]: password must be a bcrypt hash: %w", i, err)
			}
		}
	}

	return nil
}
