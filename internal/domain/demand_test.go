package domain

import (
	"errors"
	"testing"
)

func TestBuiltinPatterns(t *testing.T) {
	list := Patterns()
	if len(list) < 8 {
		t.Fatalf("catalog has %d patterns, want at least 8", len(list))
	}
	for i, p := range list[:8] {
		if want := string(rune('A' + i)); p.Key != want {
			t.Fatalf("pattern %d key = %s, want %s", i, p.Key, want)
		}
		if len(p.Demand) != 12 {
			t.Fatalf("pattern %s has %d rounds, want 12", p.Key, len(p.Demand))
		}
	}

	d, err := LookupPattern(DefaultPatternKey)
	if err != nil {
		t.Fatalf("LookupPattern error: %v", err)
	}
	if d.Demand[4] != 10 || d.Demand[5] != 14 {
		t.Fatalf("step pattern = %v", d.Demand)
	}
	d.Demand[0] = 99
	if again, _ := LookupPattern(DefaultPatternKey); again.Demand[0] != 10 {
		t.Fatalf("LookupPattern leaked its backing slice")
	}
}

func TestLookupUnknownPattern(t *testing.T) {
	if _, err := LookupPattern("nope"); !errors.Is(err, ErrUnknownPattern) {
		t.Fatalf("error = %v, want ErrUnknownPattern", err)
	}
}

func TestRegisterPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern DemandPattern
		wantErr bool
	}{
		{name: "custom", pattern: DemandPattern{Key: "Z-test", Name: "Flat", Demand: []int{5, 5}}},
		{name: "builtin key", pattern: DemandPattern{Key: "A", Demand: []int{1}}, wantErr: true},
		{name: "empty", pattern: DemandPattern{Key: "Y-test"}, wantErr: true},
		{name: "negative", pattern: DemandPattern{Key: "X-test", Demand: []int{3, -1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RegisterPattern(tt.pattern)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RegisterPattern error: %v", err)
			}
			got, err := LookupPattern(tt.pattern.Key)
			if err != nil || len(got.Demand) != len(tt.pattern.Demand) {
				t.Fatalf("LookupPattern = %+v, %v", got, err)
			}
		})
	}
}

func TestDemandAt(t *testing.T) {
	pattern := []int{4, 8, 15}
	tests := []struct {
		round, want int
	}{
		{0, 0}, {1, 4}, {3, 15}, {4, 0},
	}
	for _, tt := range tests {
		if got := DemandAt(pattern, tt.round); got != tt.want {
			t.Fatalf("DemandAt(%d) = %d, want %d", tt.round, got, tt.want)
		}
	}
}
