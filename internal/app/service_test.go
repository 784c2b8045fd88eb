package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"beergame/internal/domain"
	"beergame/internal/ports"
	"beergame/internal/ports/memory"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// conflictStore loses the next n saves to a simulated concurrent writer.
type conflictStore struct {
	ports.SessionStore
	conflicts int
	saves     int
}

func (c *conflictStore) Save(ctx context.Context, s *domain.Session, version string) (string, error) {
	c.saves++
	if c.conflicts > 0 {
		c.conflicts--
		return "", ports.ErrVersionConflict
	}
	return c.SessionStore.Save(ctx, s, version)
}

// takenStore rejects the first n creates as join-code collisions.
type takenStore struct {
	ports.SessionStore
	taken int
}

func (c *takenStore) Create(ctx context.Context, s *domain.Session) (string, error) {
	if c.taken > 0 {
		c.taken--
		return "", ports.ErrJoinCodeTaken
	}
	return c.SessionStore.Create(ctx, s)
}

func newTestService(t *testing.T, store ports.SessionStore, opts ...Option) *Service {
	t.Helper()
	tickets, err := NewTicketService("test-secret", 0)
	if err != nil {
		t.Fatalf("NewTicketService error: %v", err)
	}
	seq := 0
	base := []Option{
		WithTickets(tickets),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%04d", seq)
		}),
	}
	return NewService(store, rand.New(rand.NewSource(42)), append(base, opts...)...)
}

func createLobby(t *testing.T, svc *Service, teams ...string) (*domain.Session, map[string]JoinResult) {
	t.Helper()
	ctx := context.Background()
	s, _, err := svc.CreateSession(ctx, ConfigOverrides{})
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	joined := make(map[string]JoinResult, len(teams))
	for _, name := range teams {
		res, _, err := svc.JoinTeam(ctx, s.JoinCode, name, nil)
		if err != nil {
			t.Fatalf("JoinTeam(%s) error: %v", name, err)
		}
		joined[name] = res
	}
	return s, joined
}

func hasEvent(events []Event, kind EventKind) bool {
	for _, ev := range events {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func TestCreateSessionAppliesOverrides(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()

	backorder := 2
	s, events, err := svc.CreateSession(ctx, ConfigOverrides{DemandPatternKey: "G", BackorderCost: &backorder})
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if s.Phase != domain.PhaseLobby || len(s.JoinCode) != JoinCodeLength {
		t.Fatalf("session = %s code %q", s.Phase, s.JoinCode)
	}
	if s.Config.DemandPatternKey != "G" || s.Config.DemandPattern[0] != 8 || s.Config.BackorderCost != 2 {
		t.Fatalf("config = %+v", s.Config)
	}
	if !hasEvent(events, EventSessionCreated) {
		t.Fatalf("events = %+v", events)
	}

	got, err := svc.GetState(ctx, s.ID)
	if err != nil || got.JoinCode != s.JoinCode {
		t.Fatalf("GetState = %v, %v", got, err)
	}
}

func TestCreateSessionRejectsBadConfig(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	zero, huge, many := 0, 1<<40, domain.MaxTotalRounds+1
	tests := []struct {
		name      string
		overrides ConfigOverrides
		want      error
	}{
		{name: "unknown pattern", overrides: ConfigOverrides{DemandPatternKey: "nope"}, want: domain.ErrUnknownPattern},
		{name: "zero rounds", overrides: ConfigOverrides{TotalRounds: &zero}, want: domain.ErrInvalidConfig},
		{name: "zero info delay", overrides: ConfigOverrides{InfoDelay: &zero}, want: domain.ErrInvalidConfig},
		{name: "huge ship delay", overrides: ConfigOverrides{ShipDelay: &huge}, want: domain.ErrInvalidConfig},
		{name: "huge info delay", overrides: ConfigOverrides{InfoDelay: &huge}, want: domain.ErrInvalidConfig},
		{name: "too many rounds", overrides: ConfigOverrides{TotalRounds: &many}, want: domain.ErrInvalidConfig},
		{name: "delay longer than pattern", overrides: ConfigOverrides{DemandPatternKey: "A", ShipDelay: &many}, want: domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateSession(context.Background(), tt.overrides)
			if !errors.Is(err, tt.want) || !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("CreateSession error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateSessionRetriesTakenJoinCodes(t *testing.T) {
	store := &takenStore{SessionStore: memory.NewStore(), taken: 2}
	svc := newTestService(t, store)
	if _, _, err := svc.CreateSession(context.Background(), ConfigOverrides{}); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	store.taken = maxJoinCodeAttempts
	if _, _, err := svc.CreateSession(context.Background(), ConfigOverrides{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("CreateSession error = %v, want ErrConflict", err)
	}
}

func TestSessionReferences(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	s, _ := createLobby(t, svc)
	ctx := context.Background()

	for _, ref := range []string{s.ID, s.JoinCode, "  " + s.JoinCode + " ", "ID-0"} {
		got, err := svc.GetState(ctx, ref)
		if err != nil {
			t.Fatalf("GetState(%q) error: %v", ref, err)
		}
		if got.ID != s.ID {
			t.Fatalf("GetState(%q) = %s, want %s", ref, got.ID, s.ID)
		}
	}
	if _, err := svc.GetState(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetState(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetState(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetState(\"\") error = %v, want ErrValidation", err)
	}
}

func TestJoinTeamIssuesResumableTicket(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()
	s, _ := createLobby(t, svc)

	res, events, err := svc.JoinTeam(ctx, s.JoinCode, "Blue", map[domain.Role]string{domain.Manufacturer: "echo"})
	if err != nil {
		t.Fatalf("JoinTeam error: %v", err)
	}
	if res.Ticket == "" || res.Team.Bots[domain.Manufacturer] != "echo" {
		t.Fatalf("join result = %+v", res)
	}
	if !hasEvent(events, EventTeamJoined) {
		t.Fatalf("events = %+v", events)
	}

	session, team, err := svc.ResumeTeam(ctx, res.Ticket)
	if err != nil {
		t.Fatalf("ResumeTeam error: %v", err)
	}
	if session.ID != s.ID || team.ID != res.Team.ID {
		t.Fatalf("resumed %s/%s, want %s/%s", session.ID, team.ID, s.ID, res.Team.ID)
	}

	if _, _, err := svc.ResumeTeam(ctx, "bogus"); !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("ResumeTeam(bogus) error = %v, want ErrInvalidTicket", err)
	}
	if _, _, err := svc.JoinTeam(ctx, s.ID, "Red", map[domain.Role]string{domain.Retailer: "genius"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown bot level error = %v, want ErrValidation", err)
	}
}

func TestJoinTeamSignsTicketBeforeSaving(t *testing.T) {
	mem := memory.NewStore()
	s, _ := createLobby(t, newTestService(t, mem))

	store := &conflictStore{SessionStore: mem}
	svc := newTestService(t, store, WithIDGenerator(func() string { return "" }))
	_, _, err := svc.JoinTeam(context.Background(), s.JoinCode, "Blue", nil)
	if err == nil || errors.Is(err, domain.ErrMissingTeamID) {
		t.Fatalf("JoinTeam error = %v, want the ticket error before any save", err)
	}
	if store.saves != 0 {
		t.Fatalf("JoinTeam saved %d times after failing to sign a ticket", store.saves)
	}
	got, err := svc.GetState(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetState error: %v", err)
	}
	if len(got.Teams) != 0 {
		t.Fatalf("teams = %v, want none", got.Teams)
	}
}

func TestJoinAfterStartFails(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()
	s, _ := createLobby(t, svc, "Blue")
	if _, _, err := svc.Advance(ctx, s.ID); err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if _, _, err := svc.JoinTeam(ctx, s.ID, "Late", nil); !errors.Is(err, domain.ErrNotInLobby) {
		t.Fatalf("JoinTeam error = %v, want ErrNotInLobby", err)
	}
}

func TestSubmitOrderAutoAdvancesWithBots(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()
	s, _ := createLobby(t, svc)
	res, _, err := svc.JoinTeam(ctx, s.ID, "Blue", map[domain.Role]string{
		domain.Wholesaler:   "echo",
		domain.Distributor:  "steady",
		domain.Manufacturer: "base_stock",
	})
	if err != nil {
		t.Fatalf("JoinTeam error: %v", err)
	}
	teamID := res.Team.ID

	_, events, err := svc.Advance(ctx, s.ID)
	if err != nil || !hasEvent(events, EventGameStarted) {
		t.Fatalf("Advance = %+v, %v", events, err)
	}

	next, advanced, events, err := svc.SubmitOrder(ctx, s.JoinCode, teamID, domain.Retailer, 12)
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if !advanced {
		t.Fatalf("a single human order did not commit an all-bot-but-one team")
	}
	if next.Teams[teamID].CurrentRound != 2 {
		t.Fatalf("team round = %d, want 2", next.Teams[teamID].CurrentRound)
	}
	if next.Teams[teamID].Nodes[domain.Retailer].LastOrderPlaced != 12 {
		t.Fatalf("retailer order = %d, want 12", next.Teams[teamID].Nodes[domain.Retailer].LastOrderPlaced)
	}
	if !hasEvent(events, EventOrderSubmitted) || !hasEvent(events, EventRoundCommitted) {
		t.Fatalf("events = %+v", events)
	}
}

func TestSubmitOrderErrors(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()
	s, joined := createLobby(t, svc, "Blue")
	teamID := joined["Blue"].Team.ID

	if _, _, _, err := svc.SubmitOrder(ctx, s.ID, teamID, domain.Retailer, 5); !errors.Is(err, domain.ErrNotPlaying) {
		t.Fatalf("lobby SubmitOrder error = %v, want ErrNotPlaying", err)
	}
	_, _, _ = svc.Advance(ctx, s.ID)

	tests := []struct {
		name   string
		teamID string
		role   domain.Role
		amount int
		want   error
	}{
		{name: "negative", teamID: teamID, role: domain.Retailer, amount: -3, want: domain.ErrValidation},
		{name: "bad role", teamID: teamID, role: domain.Role(12), amount: 3, want: domain.ErrValidation},
		{name: "unknown team", teamID: "ghost", role: domain.Retailer, amount: 3, want: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := svc.SubmitOrder(ctx, s.ID, tt.teamID, tt.role, tt.amount); !errors.Is(err, tt.want) {
				t.Fatalf("SubmitOrder error = %v, want %v", err, tt.want)
			}
		})
	}

	got, _ := svc.GetState(ctx, s.ID)
	if len(got.PendingOrders) != 0 {
		t.Fatalf("failed submits left staged orders: %v", got.PendingOrders)
	}
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	store := &conflictStore{SessionStore: memory.NewStore()}
	svc := newTestService(t, store)
	ctx := context.Background()
	s, _ := createLobby(t, svc, "Blue")

	store.conflicts = MaxUpdateAttempts - 1
	store.saves = 0
	next, _, err := svc.Advance(ctx, s.ID)
	if err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if next.Phase != domain.PhasePlaying || store.saves != MaxUpdateAttempts {
		t.Fatalf("phase %s after %d saves", next.Phase, store.saves)
	}

	store.conflicts = MaxUpdateAttempts
	if _, _, err := svc.Advance(ctx, s.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("Advance error = %v, want ErrConflict", err)
	}
	got, _ := svc.GetState(ctx, s.ID)
	if got.CurrentRound != 1 {
		t.Fatalf("failed update changed the stored session: round %d", got.CurrentRound)
	}
}

func TestLockstepGameToCompletion(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()
	s, joined := createLobby(t, svc, "Blue", "Red")
	_, _, _ = svc.Advance(ctx, s.ID)

	var (
		cur    *domain.Session
		events []Event
		err    error
	)
	for round := 1; round <= 12; round++ {
		if _, _, _, err = svc.SubmitOrder(ctx, s.ID, joined["Red"].Team.ID, domain.Retailer, 14); err != nil {
			t.Fatalf("round %d SubmitOrder error: %v", round, err)
		}
		if cur, events, err = svc.Advance(ctx, s.ID); err != nil {
			t.Fatalf("round %d Advance error: %v", round, err)
		}
	}
	if cur.Phase != domain.PhaseCompleted || cur.CurrentRound != 13 {
		t.Fatalf("session = %s round %d", cur.Phase, cur.CurrentRound)
	}
	if !hasEvent(events, EventSessionCompleted) {
		t.Fatalf("last events = %+v", events)
	}
	if _, _, err := svc.Advance(ctx, s.ID); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("Advance after completion error = %v, want ErrPrecondition", err)
	}

	restarted, events, err := svc.Restart(ctx, s.JoinCode)
	if err != nil {
		t.Fatalf("Restart error: %v", err)
	}
	if restarted.Phase != domain.PhasePlaying || restarted.CurrentRound != 1 || !hasEvent(events, EventSessionRestarted) {
		t.Fatalf("restart = %s round %d events %+v", restarted.Phase, restarted.CurrentRound, events)
	}
}

func TestAdvanceTeamMovesOnlyThatTeam(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	ctx := context.Background()
	s, joined := createLobby(t, svc, "Blue", "Red")
	_, _, _ = svc.Advance(ctx, s.ID)

	blue := joined["Blue"].Team.ID
	next, events, err := svc.AdvanceTeam(ctx, s.ID, blue)
	if err != nil {
		t.Fatalf("AdvanceTeam error: %v", err)
	}
	if next.Teams[blue].CurrentRound != 2 || next.Teams[joined["Red"].Team.ID].CurrentRound != 1 {
		t.Fatalf("rounds blue %d red %d", next.Teams[blue].CurrentRound, next.Teams[joined["Red"].Team.ID].CurrentRound)
	}
	if len(events) != 1 || events[0].Kind != EventRoundCommitted || events[0].Properties["team_id"] != blue {
		t.Fatalf("events = %+v", events)
	}
}

func TestListPatterns(t *testing.T) {
	svc := newTestService(t, memory.NewStore())
	patterns := svc.ListPatterns()
	if len(patterns) < 8 || patterns[0].Key != "A" {
		t.Fatalf("patterns = %+v", patterns)
	}
}
