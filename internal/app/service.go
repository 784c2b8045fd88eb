package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"beergame/internal/bot"
	"beergame/internal/domain"
	"beergame/internal/ports"

	"github.com/google/uuid"
)

// Service contains beer game use-cases. Every mutation loads the session, applies a pure
// domain transition and saves the result conditionally on the version it loaded.
type Service struct {
	store    ports.SessionStore
	tickets  *TicketService
	defaults domain.Config
	now      func() time.Time
	newID    func() string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customises a Service.
type Option func(*Service)

// WithTickets enables team resume tickets.
func WithTickets(t *TicketService) Option {
	return func(s *Service) { s.tickets = t }
}

// WithDefaults sets the config new sessions start from.
func WithDefaults(cfg domain.Config) Option {
	return func(s *Service) { s.defaults = cfg }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator used for session and team ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(store ports.SessionStore, rng *rand.Rand, opts ...Option) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		store:    store,
		defaults: domain.DefaultConfig(),
		now:      time.Now,
		newID:    uuid.NewString,
		rng:      rng,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfigOverrides carries the optional config fields of a create request.
type ConfigOverrides struct {
	HoldingCost        *int   `json:"holding_cost,omitempty"`
	BackorderCost      *int   `json:"backorder_cost,omitempty"`
	InfoDelay          *int   `json:"info_delay,omitempty"`
	ShipDelay          *int   `json:"ship_delay,omitempty"`
	StartingInventory  *int   `json:"starting_inventory,omitempty"`
	StartingBacklog    *int   `json:"starting_backlog,omitempty"`
	DemandPatternKey   string `json:"demand_pattern_key,omitempty"`
	TotalRounds        *int   `json:"total_rounds,omitempty"`
	RoundWindowSeconds *int   `json:"round_window_seconds,omitempty"`
}

// apply layers the overrides on base. Picking a pattern without a round count plays the
// whole pattern.
func (o ConfigOverrides) apply(base domain.Config) (domain.Config, error) {
	cfg := base
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.HoldingCost, o.HoldingCost)
	set(&cfg.BackorderCost, o.BackorderCost)
	set(&cfg.InfoDelay, o.InfoDelay)
	set(&cfg.ShipDelay, o.ShipDelay)
	set(&cfg.StartingInventory, o.StartingInventory)
	set(&cfg.StartingBacklog, o.StartingBacklog)
	set(&cfg.RoundWindowSeconds, o.RoundWindowSeconds)

	if o.DemandPatternKey != "" {
		p, err := domain.LookupPattern(o.DemandPatternKey)
		if err != nil {
			return domain.Config{}, err
		}
		cfg.DemandPatternKey = p.Key
		cfg.DemandPattern = p.Demand
		cfg.TotalRounds = len(p.Demand)
	}
	set(&cfg.TotalRounds, o.TotalRounds)
	return cfg, cfg.Validate()
}

// CreateSession creates a lobby session with a fresh join code.
func (s *Service) CreateSession(ctx context.Context, overrides ConfigOverrides) (*domain.Session, []Event, error) {
	cfg, err := overrides.apply(s.defaults)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		session, err := domain.NewSession(s.newID(), s.joinCode(), cfg, s.now())
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.store.Create(ctx, session); err != nil {
			if errors.Is(err, ports.ErrJoinCodeTaken) {
				continue
			}
			return nil, nil, fmt.Errorf("failed to create session: %w", err)
		}
		return session, []Event{newEvent(EventSessionCreated, session, map[string]string{
			"join_code":      session.JoinCode,
			"demand_pattern": cfg.DemandPatternKey,
			"total_rounds":   strconv.Itoa(cfg.TotalRounds),
		})}, nil
	}
	return nil, nil, fmt.Errorf("%w: no free join code", ErrConflict)
}

func (s *Service) joinCode() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	var b strings.Builder
	for i := 0; i < JoinCodeLength; i++ {
		b.WriteByte(joinCodeAlphabet[s.rng.Intn(len(joinCodeAlphabet))])
	}
	return b.String()
}

// JoinResult is what a team gets back when it joins.
type JoinResult struct {
	Session *domain.Session
	Team    *domain.Team
	// Ticket lets the team resume later; empty when tickets are disabled.
	Ticket string
}

// JoinTeam adds a team to a lobby session. bots maps roles to autopilot levels.
func (s *Service) JoinTeam(ctx context.Context, ref, name string, bots map[domain.Role]string) (JoinResult, []Event, error) {
	for _, level := range bots {
		if _, err := bot.ParseLevel(level); err != nil {
			return JoinResult{}, nil, err
		}
	}

	stored, err := s.load(ctx, ref)
	if err != nil {
		return JoinResult{}, nil, err
	}

	// The ticket is signed before the save so a stored team always has one.
	teamID := s.newID()
	var ticket string
	if s.tickets != nil {
		if ticket, err = s.tickets.Issue(stored.Session.ID, teamID); err != nil {
			return JoinResult{}, nil, fmt.Errorf("failed to issue team ticket: %w", err)
		}
	}

	next, events, err := s.update(ctx, stored.Session.ID, func(cur *domain.Session) (*domain.Session, error) {
		next, _, err := domain.AddTeam(cur, teamID, name, bots)
		return next, err
	})
	if err != nil {
		return JoinResult{}, nil, err
	}

	team := next.Teams[teamID]
	result := JoinResult{Session: next, Team: team, Ticket: ticket}
	events = append(events, newEvent(EventTeamJoined, next, map[string]string{
		"team_id":   teamID,
		"team_name": team.Name,
		"bots":      strconv.Itoa(len(team.Bots)),
	}))
	return result, events, nil
}

// SubmitOrder stages a role's order. Bot roles of the team fill in their own orders first,
// and the team's round commits once all four roles have staged.
func (s *Service) SubmitOrder(ctx context.Context, ref, teamID string, role domain.Role, amount int) (*domain.Session, bool, []Event, error) {
	var advanced bool
	next, events, err := s.update(ctx, ref, func(cur *domain.Session) (*domain.Session, error) {
		staged, err := bot.StageBots(cur, teamID)
		if err != nil {
			return nil, err
		}
		next, ok, err := domain.SubmitOrder(staged, teamID, role, amount)
		advanced = ok
		return next, err
	})
	if err != nil {
		return nil, false, nil, err
	}
	events = append([]Event{newEvent(EventOrderSubmitted, next, map[string]string{
		"team_id":  teamID,
		"role":     role.String(),
		"amount":   strconv.Itoa(amount),
		"advanced": strconv.FormatBool(advanced),
	})}, events...)
	return next, advanced, events, nil
}

// Advance is the facilitator action: start the game from the lobby, or commit a lockstep
// round once bots have staged.
func (s *Service) Advance(ctx context.Context, ref string) (*domain.Session, []Event, error) {
	return s.update(ctx, ref, func(cur *domain.Session) (*domain.Session, error) {
		staged, err := bot.StageAllBots(cur)
		if err != nil {
			return nil, err
		}
		return domain.Advance(staged, s.now())
	})
}

// AdvanceTeam commits one team's round whether or not every role has staged.
func (s *Service) AdvanceTeam(ctx context.Context, ref, teamID string) (*domain.Session, []Event, error) {
	return s.update(ctx, ref, func(cur *domain.Session) (*domain.Session, error) {
		staged, err := bot.StageBots(cur, teamID)
		if err != nil {
			return nil, err
		}
		return domain.CommitTeam(staged, teamID)
	})
}

// Restart resets every team to round 1.
func (s *Service) Restart(ctx context.Context, ref string) (*domain.Session, []Event, error) {
	next, events, err := s.update(ctx, ref, func(cur *domain.Session) (*domain.Session, error) {
		return domain.Restart(cur, s.now())
	})
	if err != nil {
		return nil, nil, err
	}
	return next, append(events, newEvent(EventSessionRestarted, next, nil)), nil
}

// GetState returns the current session.
func (s *Service) GetState(ctx context.Context, ref string) (*domain.Session, error) {
	stored, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	return stored.Session, nil
}

// ResumeTeam verifies a team ticket and returns the session and team it was issued for.
func (s *Service) ResumeTeam(ctx context.Context, ticket string) (*domain.Session, *domain.Team, error) {
	if s.tickets == nil {
		return nil, nil, fmt.Errorf("%w: tickets are disabled", ErrInvalidTicket)
	}
	claims, err := s.tickets.Verify(ticket)
	if err != nil {
		return nil, nil, err
	}
	stored, err := s.load(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	team, ok := stored.Session.Teams[claims.TeamID]
	if !ok {
		return nil, nil, fmt.Errorf("%w %s", domain.ErrUnknownTeam, claims.TeamID)
	}
	return stored.Session, team, nil
}

// ListPatterns returns the demand pattern catalog.
func (s *Service) ListPatterns() []domain.DemandPattern {
	return domain.Patterns()
}

// load resolves a session by id, join code or id prefix.
func (s *Service) load(ctx context.Context, ref string) (ports.StoredSession, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ports.StoredSession{}, ErrMissingSession
	}
	stored, err := s.store.Get(ctx, ref)
	if errors.Is(err, ports.ErrSessionNotFound) {
		stored, err = s.store.GetByJoinCode(ctx, ref)
	}
	if errors.Is(err, ports.ErrSessionNotFound) {
		return ports.StoredSession{}, fmt.Errorf("%w %s", ErrSessionNotFound, ref)
	}
	if err != nil {
		return ports.StoredSession{}, fmt.Errorf("failed to load session: %w", err)
	}
	return stored, nil
}

// update applies fn to the latest session and saves the result, re-reading and re-applying
// fn when another writer saved first.
func (s *Service) update(ctx context.Context, ref string, fn func(*domain.Session) (*domain.Session, error)) (*domain.Session, []Event, error) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		stored, err := s.load(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		next, err := fn(stored.Session)
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.store.Save(ctx, next, stored.Version); err != nil {
			switch {
			case errors.Is(err, ports.ErrVersionConflict):
				ref = stored.Session.ID
				continue
			case errors.Is(err, ports.ErrSessionNotFound):
				return nil, nil, fmt.Errorf("%w %s", ErrSessionNotFound, ref)
			default:
				return nil, nil, fmt.Errorf("failed to save session: %w", err)
			}
		}
		return next, diffEvents(stored.Session, next), nil
	}
	return nil, nil, ErrConflict
}

func sortedTeamIDs(s *domain.Session) []string {
	ids := make([]string, 0, len(s.Teams))
	for id := range s.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
