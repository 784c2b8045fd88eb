package domain

import (
	"fmt"
	"sort"
	"sync"
)

// DemandPattern is a named sequence of per-round customer demand.
type DemandPattern struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Demand      []int  `json:"demand" yaml:"demand"`
}

// DefaultPatternKey selects the classic step-change demonstration.
const DefaultPatternKey = "D"

var builtinPatterns = []DemandPattern{
	{Key: "A", Name: "Stable", Description: "Constant demand - Level 1 baseline",
		Demand: []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}},
	{Key: "B", Name: "Mild Noise", Description: "Slight variation - Intro-friendly",
		Demand: []int{9, 10, 11, 10, 9, 10, 11, 10, 9, 10, 11, 10}},
	{Key: "C", Name: "Realistic Noise", Description: "Unpredictable variation - Level 2",
		Demand: []int{8, 11, 9, 12, 10, 9, 13, 8, 11, 10, 12, 9}},
	{Key: "D", Name: "Step Change", Description: "Classic bullwhip demonstration",
		Demand: []int{10, 10, 10, 10, 10, 14, 14, 14, 14, 14, 14, 14}},
	{Key: "E", Name: "Spike & Revert", Description: "Tests overreaction to one-time spike",
		Demand: []int{10, 10, 10, 10, 18, 10, 10, 10, 10, 10, 10, 10}},
	{Key: "F", Name: "Promotion Wave", Description: "Batching effect demonstration",
		Demand: []int{9, 9, 9, 14, 14, 14, 9, 9, 9, 14, 14, 9}},
	{Key: "G", Name: "Seasonal Ramp", Description: "Gradual increase - Forecasting lesson",
		Demand: []int{8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}},
	{Key: "H", Name: "Misleading Calm", Description: "Stable early, turbulent later",
		Demand: []int{10, 10, 10, 10, 10, 10, 8, 12, 9, 13, 10, 12}},
}

var (
	patternsMu sync.RWMutex
	patterns   = indexPatterns(builtinPatterns)
)

func indexPatterns(list []DemandPattern) map[string]DemandPattern {
	out := make(map[string]DemandPattern, len(list))
	for _, p := range list {
		out[p.Key] = p
	}
	return out
}

// LookupPattern returns a copy of the catalog entry for key.
func LookupPattern(key string) (DemandPattern, error) {
	patternsMu.RLock()
	defer patternsMu.RUnlock()

	p, ok := patterns[key]
	if !ok {
		return DemandPattern{}, fmt.Errorf("%w: %q", ErrUnknownPattern, key)
	}
	p.Demand = append([]int(nil), p.Demand...)
	return p, nil
}

// Patterns returns the catalog sorted by key.
func Patterns() []DemandPattern {
	patternsMu.RLock()
	defer patternsMu.RUnlock()

	out := make([]DemandPattern, 0, len(patterns))
	for _, p := range patterns {
		p.Demand = append([]int(nil), p.Demand...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// RegisterPattern adds or replaces a catalog entry. Built-in keys cannot be replaced.
func RegisterPattern(p DemandPattern) error {
	if p.Key == "" || len(p.Demand) == 0 {
		return fmt.Errorf("%w: pattern needs a key and at least one value", ErrInvalidConfig)
	}
	for _, d := range p.Demand {
		if d < 0 {
			return fmt.Errorf("%w: pattern %q has negative demand", ErrInvalidConfig, p.Key)
		}
	}
	for _, b := range builtinPatterns {
		if b.Key == p.Key {
			return fmt.Errorf("%w: pattern %q is built in", ErrInvalidConfig, p.Key)
		}
	}

	patternsMu.Lock()
	defer patternsMu.Unlock()
	p.Demand = append([]int(nil), p.Demand...)
	patterns[p.Key] = p
	return nil
}

// DemandAt returns customer demand for a 1-based round; rounds past the sequence yield 0.
func DemandAt(pattern []int, round int) int {
	if round < 1 || round > len(pattern) {
		return 0
	}
	return pattern[round-1]
}
