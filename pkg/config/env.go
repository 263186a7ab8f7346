package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overlays DEVBOX_* environment variables onto cfg.
// Variables that are unset leave the file values untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(&cfg.Mirrors); err != nil {
		return fmt.Errorf("parse mirror env: %w", err)
	}
	if err := env.Parse(&cfg.VM); err != nil {
		return fmt.Errorf("parse vm env: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return fmt.Errorf("parse log env: %w", err)
	}
	return nil
}
