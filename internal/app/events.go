package app

import (
	"strconv"

	"beergame/internal/domain"
)

// EventKind identifies emitted session events for analytics dispatch.
type EventKind string

const (
	EventSessionCreated   EventKind = "session_created"
	EventTeamJoined       EventKind = "team_joined"
	EventGameStarted      EventKind = "game_started"
	EventOrderSubmitted   EventKind = "order_submitted"
	EventRoundCommitted   EventKind = "round_committed"
	EventSessionRestarted EventKind = "session_restarted"
	EventSessionCompleted EventKind = "session_completed"
)

// Event is something that happened to a session. Properties are flat strings so they can be
// forwarded to any analytics sink unchanged.
type Event struct {
	Kind       EventKind
	SessionID  string
	Properties map[string]string
}

func newEvent(kind EventKind, s *domain.Session, props map[string]string) Event {
	if props == nil {
		props = map[string]string{}
	}
	return Event{Kind: kind, SessionID: s.ID, Properties: props}
}

// diffEvents describes the phase and round changes between two versions of a session.
func diffEvents(before, after *domain.Session) []Event {
	var events []Event
	if before.Phase == domain.PhaseLobby && after.Phase == domain.PhasePlaying {
		events = append(events, newEvent(EventGameStarted, after, map[string]string{
			"teams": strconv.Itoa(len(after.Teams)),
		}))
	}
	for _, id := range sortedTeamIDs(after) {
		prev, ok := before.Teams[id]
		team := after.Teams[id]
		if !ok || prev.CurrentRound == 0 || team.CurrentRound <= prev.CurrentRound {
			continue
		}
		for round := prev.CurrentRound; round < team.CurrentRound; round++ {
			events = append(events, newEvent(EventRoundCommitted, after, map[string]string{
				"team_id":    id,
				"round":      strconv.Itoa(round),
				"total_cost": strconv.Itoa(team.TotalCost),
			}))
		}
	}
	if before.Phase != domain.PhaseCompleted && after.Phase == domain.PhaseCompleted {
		events = append(events, newEvent(EventSessionCompleted, after, map[string]string{
			"rounds": strconv.Itoa(after.TotalRounds),
		}))
	}
	return events
}
