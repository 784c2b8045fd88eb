package bot

import (
	"sort"

	"beergame/internal/domain"
)

// Agent drives one role of a team.
type Agent struct {
	Role     domain.Role
	Strategy Brain
}

// Play asks the agent for its order this round.
func (a *Agent) Play(s *domain.Session, team *domain.Team) int {
	return max(a.Strategy.DecideOrder(Observe(s, team, a.Role)), 0)
}

// StageBots stages an order for every bot-driven role of the team that has not staged one
// yet. Human roles and roles that already staged are left alone.
func StageBots(s *domain.Session, teamID string) (*domain.Session, error) {
	team, ok := s.Teams[teamID]
	if !ok {
		// Left for the caller's own transition to report.
		return s, nil
	}
	if s.Phase != domain.PhasePlaying || len(team.Bots) == 0 || team.RoundPhase != domain.RoundOrdering {
		return s, nil
	}

	next := s
	for _, role := range domain.Roles {
		level, isBot := team.Bots[role]
		if !isBot {
			continue
		}
		if _, staged := next.PendingOrders[teamID].Get(role); staged {
			continue
		}
		brain, err := NewBrain(Level(level))
		if err != nil {
			return nil, err
		}
		agent := Agent{Role: role, Strategy: brain}
		amount := agent.Play(next, next.Teams[teamID])
		if next, err = domain.StageOrder(next, teamID, role, amount); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// StageAllBots runs StageBots for every team still ordering, in a stable order.
func StageAllBots(s *domain.Session) (*domain.Session, error) {
	if s.Phase != domain.PhasePlaying {
		return s, nil
	}
	next := s
	for _, id := range teamIDs(s) {
		var err error
		if next, err = StageBots(next, id); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func teamIDs(s *domain.Session) []string {
	ids := make([]string, 0, len(s.Teams))
	for id := range s.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
