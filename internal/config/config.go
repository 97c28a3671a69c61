package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type GameConfig struct {
	// DisconnectGraceSeconds configures how many seconds an absent player's
	// session is kept alive before the match is closed out.
	DisconnectGraceSeconds int `json:"disconnect_grace_seconds"`

	TicketIssuer     string `json:"ticket_issuer"`
	TicketTTLSeconds int    `json:"ticket_ttl_seconds"`
	TicketSecretEnv  string `json:"ticket_secret_env"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetDisconnectGrace returns the disconnect grace period, or a safe default
// when no config has been loaded.
func GetDisconnectGrace() time.Duration {
	if cfg == nil || cfg.DisconnectGraceSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.DisconnectGraceSeconds) * time.Second
}

// GetTicketTTL returns how long settlement tickets stay valid.
func GetTicketTTL() time.Duration {
	if cfg == nil || cfg.TicketTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.TicketTTLSeconds) * time.Second
}

// GetTicketIssuer returns the issuer name stamped into settlement tickets.
func GetTicketIssuer() string {
	if cfg == nil || cfg.TicketIssuer == "" {
		return "triad"
	}
	return cfg.TicketIssuer
}

// GetTicketSecret reads the settlement signing secret from the environment.
// The variable name is configurable so deployments can rotate keys without
// touching the module.
func GetTicketSecret() []byte {
	name := "TRIAD_TICKET_SECRET"
	if cfg != nil && cfg.TicketSecretEnv != "" {
		name = cfg.TicketSecretEnv
	}
	if v := os.Getenv(name); v != "" {
		return []byte(v)
	}
	return nil
}
