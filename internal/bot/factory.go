package bot

import (
	"fmt"

	"beergame/internal/domain"
)

// Level names an order policy a team can hand a role to.
type Level string

const (
	LevelEcho      Level = "echo"
	LevelSteady    Level = "steady"
	LevelBaseStock Level = "base_stock"
)

// Levels lists every known policy.
var Levels = []Level{LevelEcho, LevelSteady, LevelBaseStock}

// ParseLevel validates a policy name.
func ParseLevel(name string) (Level, error) {
	for _, l := range Levels {
		if string(l) == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown bot level %q", domain.ErrValidation, name)
}

// NewBrain creates the order policy for level.
func NewBrain(level Level) (Brain, error) {
	switch level {
	case LevelEcho:
		return &EchoBot{}, nil
	case LevelSteady:
		return &SteadyBot{Tuning: DefaultTuning}, nil
	case LevelBaseStock:
		return &BaseStockBot{Tuning: DefaultTuning}, nil
	default:
		return nil, fmt.Errorf("%w: unknown bot level %q", domain.ErrValidation, level)
	}
}
