package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"beergame/internal/domain"

	"gopkg.in/yaml.v3"
)

// Runtime env keys read from the Nakama runtime environment.
const (
	EnvConfigPath      = "beergame_config_path"
	EnvTicketSecret    = "beergame_ticket_secret"
	EnvRetentionHours  = "beergame_retention_hours"
	EnvRoundWindowSecs = "beergame_round_window_sec"
)

const (
	defaultRetentionHours = 24 * 7
	defaultTicketTTLHours = 24
)

// GameConfig is the server-wide configuration for new sessions.
type GameConfig struct {
	// Defaults seeds every new session; a create request may override individual fields.
	Defaults domain.Config `yaml:"defaults"`
	// Patterns are registered into the demand catalog next to the built-in ones.
	Patterns []domain.DemandPattern `yaml:"patterns"`

	RetentionHours int    `yaml:"retention_hours"`
	TicketSecret   string `yaml:"ticket_secret"`
	TicketTTLHours int    `yaml:"ticket_ttl_hours"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the configuration used when no file is configured.
func Default() *GameConfig {
	return &GameConfig{
		Defaults:       domain.DefaultConfig(),
		RetentionHours: defaultRetentionHours,
		TicketTTLHours: defaultTicketTTLHours,
	}
}

// LoadGameConfig loads the game configuration from the given path. An empty path keeps
// the defaults. Only the first call does any work.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		if path == "" {
			cfg = Default()
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or the defaults before a load.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// Parse decodes a YAML (or JSON) config on top of the defaults, registers its extra demand
// patterns and validates the result.
func Parse(data []byte) (*GameConfig, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	var explicit struct {
		Defaults struct {
			TotalRounds *int `yaml:"total_rounds"`
		} `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}

	for _, p := range c.Patterns {
		if err := domain.RegisterPattern(p); err != nil {
			return nil, fmt.Errorf("failed to register demand pattern: %w", err)
		}
	}

	p, err := domain.LookupPattern(c.Defaults.DemandPatternKey)
	if err != nil {
		return nil, err
	}
	c.Defaults.DemandPattern = p.Demand
	if explicit.Defaults.TotalRounds == nil {
		c.Defaults.TotalRounds = len(p.Demand)
	}
	if err := c.Defaults.Validate(); err != nil {
		return nil, err
	}
	if c.RetentionHours < 0 || c.TicketTTLHours < 0 {
		return nil, fmt.Errorf("%w: retention and ticket ttl must be >= 0", domain.ErrInvalidConfig)
	}
	return c, nil
}

// ApplyEnv overrides config fields from runtime env values. Unknown keys are ignored.
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	if v := env[EnvTicketSecret]; v != "" {
		c.TicketSecret = v
	}
	if v := env[EnvRetentionHours]; v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < 0 {
			return fmt.Errorf("%w: %s=%q", domain.ErrInvalidConfig, EnvRetentionHours, v)
		}
		c.RetentionHours = hours
	}
	if v := env[EnvRoundWindowSecs]; v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 || secs > domain.MaxRoundWindowSeconds {
			return fmt.Errorf("%w: %s=%q", domain.ErrInvalidConfig, EnvRoundWindowSecs, v)
		}
		c.Defaults.RoundWindowSeconds = secs
	}
	return nil
}
