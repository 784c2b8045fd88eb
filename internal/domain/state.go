package domain

import (
	"slices"
	"time"
)

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	// PhaseLobby is the pre-game state where teams can join.
	PhaseLobby Phase = "LOBBY"
	// PhasePlaying is the active game state where rounds are committed.
	PhasePlaying Phase = "PLAYING"
	// PhaseCompleted is the state after every team has played every round.
	PhaseCompleted Phase = "COMPLETED"
)

// RoundPhase tells whether a team is collecting orders or done with the game.
type RoundPhase string

const (
	RoundOrdering   RoundPhase = "ORDERING"
	RoundProcessing RoundPhase = "PROCESSING"
)

// Shipment is inventory in transit, usable by To once the round reaches ArrivalRound.
type Shipment struct {
	Amount       int      `json:"amount"`
	ArrivalRound int      `json:"arrival_round"`
	From         Endpoint `json:"from_role"`
	To           Role     `json:"to_role"`
}

// Order is a demand signal in transit upstream, visible to To once the round reaches ArrivalRound.
type Order struct {
	Amount       int      `json:"amount"`
	PlacedRound  int      `json:"placed_round"`
	ArrivalRound int      `json:"arrival_round"`
	From         Role     `json:"from_role"`
	To           Endpoint `json:"to_role"`
}

// Node is the mutable state of one role within a team.
type Node struct {
	Role               Role       `json:"role"`
	OnHandInventory    int        `json:"on_hand_inventory"`
	Backlog            int        `json:"backlog"`
	IncomingShipments  []Shipment `json:"incoming_shipments"`
	IncomingOrders     []Order    `json:"incoming_orders"`
	LastOrderPlaced    int        `json:"last_order_placed"`
	LastDemandReceived int        `json:"last_demand_received"`
	CostHolding        int        `json:"cost_holding"`
	CostStockout       int        `json:"cost_stockout"`

	OrderHistory     []int `json:"order_history"`
	InventoryHistory []int `json:"inventory_history"`
	BacklogHistory   []int `json:"backlog_history"`
}

// Team is an independent four-node chain with its own round pointer.
type Team struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Nodes map[Role]*Node  `json:"nodes"`
	Bots  map[Role]string `json:"bots,omitempty"` // role -> autopilot policy name

	TotalCost     int        `json:"total_cost"`
	BullwhipIndex *float64   `json:"bullwhip_index"`
	CurrentRound  int        `json:"current_round"`
	RoundPhase    RoundPhase `json:"round_phase"`
}

// TeamOrders holds the staged amount of each role that has submitted this round.
// A role absent from the map has not staged anything.
type TeamOrders map[Role]int

// Get returns the staged amount for r and whether one exists.
func (o TeamOrders) Get(r Role) (int, bool) {
	v, ok := o[r]
	return v, ok
}

// Complete reports whether every role has a staged amount.
func (o TeamOrders) Complete() bool {
	for _, r := range Roles {
		if _, ok := o[r]; !ok {
			return false
		}
	}
	return true
}

// Session is the top-level game instance.
type Session struct {
	ID            string                `json:"id"`
	JoinCode      string                `json:"join_code"`
	CurrentRound  int                   `json:"current_round"`
	TotalRounds   int                   `json:"total_rounds"`
	Phase         Phase                 `json:"phase"`
	RoundPhase    RoundPhase            `json:"round_phase"`
	RoundEndTime  *time.Time            `json:"round_end_time"`
	Config        Config                `json:"config"`
	Teams         map[string]*Team      `json:"teams"`
	PendingOrders map[string]TeamOrders `json:"pending_orders"`
	DemandHistory []int                 `json:"demand_history"`
	CreatedAt     time.Time             `json:"created_at"`
}

// TotalNodeCost sums holding and stockout cost over every node of the team.
func (t *Team) TotalNodeCost() int {
	total := 0
	for _, n := range t.Nodes {
		total += n.CostHolding + n.CostStockout
	}
	return total
}

// Finished reports whether the team has played every round.
func (t *Team) Finished(totalRounds int) bool {
	return t.CurrentRound > totalRounds
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Config = s.Config.clone()
	if s.RoundEndTime != nil {
		t := *s.RoundEndTime
		out.RoundEndTime = &t
	}
	out.Teams = make(map[string]*Team, len(s.Teams))
	for id, t := range s.Teams {
		out.Teams[id] = t.clone()
	}
	out.PendingOrders = make(map[string]TeamOrders, len(s.PendingOrders))
	for id, orders := range s.PendingOrders {
		cp := make(TeamOrders, len(orders))
		for r, v := range orders {
			cp[r] = v
		}
		out.PendingOrders[id] = cp
	}
	out.DemandHistory = slices.Clone(s.DemandHistory)
	return &out
}

func (t *Team) clone() *Team {
	out := *t
	out.Nodes = make(map[Role]*Node, len(t.Nodes))
	for r, n := range t.Nodes {
		out.Nodes[r] = n.clone()
	}
	if t.Bots != nil {
		out.Bots = make(map[Role]string, len(t.Bots))
		for r, p := range t.Bots {
			out.Bots[r] = p
		}
	}
	if t.BullwhipIndex != nil {
		v := *t.BullwhipIndex
		out.BullwhipIndex = &v
	}
	return &out
}

func (n *Node) clone() *Node {
	out := *n
	out.IncomingShipments = slices.Clone(n.IncomingShipments)
	out.IncomingOrders = slices.Clone(n.IncomingOrders)
	out.OrderHistory = slices.Clone(n.OrderHistory)
	out.InventoryHistory = slices.Clone(n.InventoryHistory)
	out.BacklogHistory = slices.Clone(n.BacklogHistory)
	return &out
}
