package domain

import (
	"fmt"
	"slices"
	"time"
)

const (
	// NeutralOrder is placed when a role has neither a staged nor a positive previous order.
	NeutralOrder = 10
	// PipelineSeedAmount is the size of each shipment seeded into a fresh pipeline.
	PipelineSeedAmount = 10
	// DefaultRoundWindow is the advisory countdown shown to players for each round.
	DefaultRoundWindow = 60 * time.Second

	// MaxTotalRounds caps a session at ten years of weekly rounds.
	MaxTotalRounds = 520
	// MaxRoundWindowSeconds caps the advisory countdown at one day.
	MaxRoundWindowSeconds = 24 * 60 * 60
)

// Config fixes the economics and delays of a session for its whole lifetime.
type Config struct {
	HoldingCost       int    `json:"holding_cost" yaml:"holding_cost"`
	BackorderCost     int    `json:"backorder_cost" yaml:"backorder_cost"`
	InfoDelay         int    `json:"info_delay" yaml:"info_delay"`
	ShipDelay         int    `json:"ship_delay" yaml:"ship_delay"`
	StartingInventory int    `json:"starting_inventory" yaml:"starting_inventory"`
	StartingBacklog   int    `json:"starting_backlog" yaml:"starting_backlog"`
	DemandPatternKey  string `json:"demand_pattern_key" yaml:"demand_pattern_key"`
	DemandPattern     []int  `json:"demand_pattern" yaml:"-"`
	TotalRounds       int    `json:"total_rounds" yaml:"total_rounds"`

	// RoundWindowSeconds is advisory display data; nothing forces a commit when it elapses.
	RoundWindowSeconds int `json:"round_window_seconds" yaml:"round_window_seconds"`
}

// DefaultConfig returns the classroom defaults with the step-change pattern.
func DefaultConfig() Config {
	p, _ := LookupPattern(DefaultPatternKey)
	return Config{
		HoldingCost:       1,
		BackorderCost:     4,
		InfoDelay:         1,
		ShipDelay:         2,
		StartingInventory: 20,
		StartingBacklog:   0,
		DemandPatternKey:  p.Key,
		DemandPattern:     p.Demand,
		TotalRounds:       len(p.Demand),

		RoundWindowSeconds: int(DefaultRoundWindow / time.Second),
	}
}

// Validate checks that the config can drive a game.
func (c Config) Validate() error {
	switch {
	case c.HoldingCost < 0 || c.BackorderCost < 0:
		return fmt.Errorf("%w: costs must be >= 0", ErrInvalidConfig)
	case c.InfoDelay < 1:
		// A zero delay would let an order count as demand in the round it was placed.
		return fmt.Errorf("%w: info delay must be >= 1", ErrInvalidConfig)
	case c.ShipDelay < 1:
		return fmt.Errorf("%w: ship delay must be >= 1", ErrInvalidConfig)
	case c.StartingInventory < 0 || c.StartingBacklog < 0:
		return fmt.Errorf("%w: starting inventory and backlog must be >= 0", ErrInvalidConfig)
	case c.TotalRounds < 1 || c.TotalRounds > MaxTotalRounds:
		return fmt.Errorf("%w: total rounds must be between 1 and %d", ErrInvalidConfig, MaxTotalRounds)
	case c.InfoDelay > c.TotalRounds || c.ShipDelay > c.TotalRounds:
		// Delays size the seeded pipeline and are added to round numbers.
		return fmt.Errorf("%w: delays must not exceed total rounds", ErrInvalidConfig)
	case c.RoundWindowSeconds < 0 || c.RoundWindowSeconds > MaxRoundWindowSeconds:
		return fmt.Errorf("%w: round window must be between 0 and %d seconds", ErrInvalidConfig, MaxRoundWindowSeconds)
	case len(c.DemandPattern) == 0:
		return fmt.Errorf("%w: demand pattern is empty", ErrInvalidConfig)
	}
	return nil
}

// RoundWindow returns the countdown shown for each round.
func (c Config) RoundWindow() time.Duration {
	if c.RoundWindowSeconds == 0 {
		return DefaultRoundWindow
	}
	return time.Duration(c.RoundWindowSeconds) * time.Second
}

func (c Config) clone() Config {
	c.DemandPattern = slices.Clone(c.DemandPattern)
	return c
}
