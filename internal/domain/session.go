package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NewSession creates a session in the lobby. The config is validated and copied.
func NewSession(id, joinCode string, cfg Config, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		ID:            id,
		JoinCode:      strings.ToUpper(joinCode),
		CurrentRound:  0,
		TotalRounds:   cfg.TotalRounds,
		Phase:         PhaseLobby,
		RoundPhase:    RoundOrdering,
		Config:        cfg.clone(),
		Teams:         make(map[string]*Team),
		PendingOrders: make(map[string]TeamOrders),
		DemandHistory: []int{},
		CreatedAt:     now,
	}, nil
}

// AddTeam returns a copy of s with a freshly seeded team. Only allowed in the lobby.
// bots maps roles to the autopilot policy that will stage their orders; it may be nil.
func AddTeam(s *Session, teamID, name string, bots map[Role]string) (*Session, *Team, error) {
	if teamID == "" {
		return nil, nil, ErrMissingTeamID
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil, ErrMissingName
	}
	for r := range bots {
		if !r.Valid() {
			return nil, nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
		}
	}
	if s.Phase != PhaseLobby {
		return nil, nil, ErrNotInLobby
	}
	if _, exists := s.Teams[teamID]; exists {
		return nil, nil, fmt.Errorf("%w: team %s already exists", ErrValidation, teamID)
	}

	next := s.Clone()
	team := &Team{
		ID:         teamID,
		Name:       strings.TrimSpace(name),
		Nodes:      seedNodes(next.Config),
		RoundPhase: RoundOrdering,
	}
	if len(bots) > 0 {
		team.Bots = make(map[Role]string, len(bots))
		for r, policy := range bots {
			team.Bots[r] = policy
		}
	}
	next.Teams[teamID] = team
	return next, team, nil
}

// seedNodes builds the starting state of every role: starting stock and a pipeline of
// ShipDelay seed shipments arriving at rounds 1..ShipDelay.
func seedNodes(cfg Config) map[Role]*Node {
	nodes := make(map[Role]*Node, NumRoles)
	for _, role := range Roles {
		pipeline := make([]Shipment, 0, cfg.ShipDelay)
		for i := 1; i <= cfg.ShipDelay; i++ {
			pipeline = append(pipeline, Shipment{
				Amount:       PipelineSeedAmount,
				ArrivalRound: i,
				From:         role.Upstream(),
				To:           role,
			})
		}
		nodes[role] = &Node{
			Role:              role,
			OnHandInventory:   cfg.StartingInventory,
			Backlog:           cfg.StartingBacklog,
			IncomingShipments: pipeline,
			IncomingOrders:    []Order{},
			OrderHistory:      []int{},
			InventoryHistory:  []int{cfg.StartingInventory},
			BacklogHistory:    []int{cfg.StartingBacklog},
		}
	}
	return nodes
}

// StartGame moves a lobby session into round 1.
func StartGame(s *Session, now time.Time) (*Session, error) {
	if s.Phase != PhaseLobby {
		return nil, ErrNotInLobby
	}
	if len(s.Teams) == 0 {
		return nil, ErrNoTeams
	}
	next := s.Clone()
	next.Phase = PhasePlaying
	resetRounds(next, now)
	return next, nil
}

// Restart resets every team to its post-start state. Team identity survives.
func Restart(s *Session, now time.Time) (*Session, error) {
	if s.Phase == PhaseLobby {
		return nil, ErrNotStarted
	}
	next := s.Clone()
	next.Phase = PhasePlaying
	for _, team := range next.Teams {
		team.Nodes = seedNodes(next.Config)
		team.TotalCost = 0
		team.BullwhipIndex = nil
	}
	resetRounds(next, now)
	return next, nil
}

func resetRounds(s *Session, now time.Time) {
	s.CurrentRound = 1
	s.RoundPhase = RoundOrdering
	s.PendingOrders = make(map[string]TeamOrders)
	s.DemandHistory = []int{DemandAt(s.Config.DemandPattern, 1)}
	end := now.Add(s.Config.RoundWindow())
	s.RoundEndTime = &end
	for _, team := range s.Teams {
		team.CurrentRound = 1
		team.RoundPhase = RoundOrdering
	}
}

// Advance is the facilitator's single "next" action: it starts a lobby session and
// commits a lockstep round for a session in play.
func Advance(s *Session, now time.Time) (*Session, error) {
	switch s.Phase {
	case PhaseLobby:
		return StartGame(s, now)
	case PhasePlaying:
		return CommitRound(s, now)
	default:
		return nil, ErrNotPlaying
	}
}

// CommitRound commits one round for every team still in play and clears all staged orders.
// In lockstep play every team sits on the session's round, so all of them commit that round.
func CommitRound(s *Session, now time.Time) (*Session, error) {
	if s.Phase != PhasePlaying {
		return nil, ErrNotPlaying
	}
	next := s.Clone()
	for _, id := range sortedTeamIDs(next) {
		team := next.Teams[id]
		if team.Finished(next.TotalRounds) {
			continue
		}
		commitTeam(team, next.Config, team.CurrentRound, next.PendingOrders[id])
	}
	next.PendingOrders = make(map[string]TeamOrders)
	next.CurrentRound = leadingRound(next)
	afterCommit(next)
	if next.Phase == PhasePlaying {
		end := now.Add(next.Config.RoundWindow())
		next.RoundEndTime = &end
	}
	return next, nil
}

// CommitTeam commits one round for a single team at its own round, regardless of which
// roles have staged orders.
func CommitTeam(s *Session, teamID string) (*Session, error) {
	if teamID == "" {
		return nil, ErrMissingTeamID
	}
	if s.Phase != PhasePlaying {
		return nil, ErrNotPlaying
	}
	if _, ok := s.Teams[teamID]; !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownTeam, teamID)
	}
	if s.Teams[teamID].Finished(s.TotalRounds) {
		return nil, ErrTeamFinished
	}

	next := s.Clone()
	team := next.Teams[teamID]
	commitTeam(team, next.Config, team.CurrentRound, next.PendingOrders[teamID])
	delete(next.PendingOrders, teamID)
	next.CurrentRound = leadingRound(next)
	afterCommit(next)
	return next, nil
}

// leadingRound is the round of the team furthest ahead.
func leadingRound(s *Session) int {
	round := s.CurrentRound
	for _, team := range s.Teams {
		round = max(round, team.CurrentRound)
	}
	return round
}

func sortedTeamIDs(s *Session) []string {
	ids := make([]string, 0, len(s.Teams))
	for id := range s.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// afterCommit reveals demand up to the session round, refreshes analytics and closes the
// session once every team has played every round.
func afterCommit(s *Session) {
	revealDemand(s, min(s.CurrentRound, s.TotalRounds))
	manufacturerIndex(s)

	for _, team := range s.Teams {
		if !team.Finished(s.TotalRounds) {
			return
		}
	}
	s.Phase = PhaseCompleted
	s.RoundPhase = RoundProcessing
	s.RoundEndTime = nil
}

// revealDemand extends the revealed history to upTo entries. Values always come from the
// pattern, so the history is the same no matter which commit reveals it.
func revealDemand(s *Session, upTo int) {
	for len(s.DemandHistory) < upTo {
		s.DemandHistory = append(s.DemandHistory, DemandAt(s.Config.DemandPattern, len(s.DemandHistory)+1))
	}
}

func manufacturerIndex(s *Session) {
	for _, team := range s.Teams {
		m, ok := team.Nodes[Manufacturer]
		if !ok {
			continue
		}
		team.BullwhipIndex = BullwhipIndex(s.DemandHistory, m.OrderHistory)
	}
}

// StageOrder records amount for role without committing anything.
func StageOrder(s *Session, teamID string, role Role, amount int) (*Session, error) {
	if teamID == "" {
		return nil, ErrMissingTeamID
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(role))
	}
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if s.Phase != PhasePlaying {
		return nil, ErrNotPlaying
	}
	team, ok := s.Teams[teamID]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownTeam, teamID)
	}
	if team.RoundPhase != RoundOrdering {
		return nil, ErrRoundLocked
	}

	next := s.Clone()
	orders := next.PendingOrders[teamID]
	if orders == nil {
		orders = make(TeamOrders, NumRoles)
		next.PendingOrders[teamID] = orders
	}
	orders[role] = amount
	return next, nil
}

// SubmitOrder stages amount for role and commits the team's round as soon as all four
// roles have staged. advanced reports whether that commit happened.
func SubmitOrder(s *Session, teamID string, role Role, amount int) (next *Session, advanced bool, err error) {
	next, err = StageOrder(s, teamID, role, amount)
	if err != nil {
		return nil, false, err
	}
	if !next.PendingOrders[teamID].Complete() {
		return next, false, nil
	}
	next, err = CommitTeam(next, teamID)
	if err != nil {
		return nil, false, err
	}
	return next, true, nil
}
