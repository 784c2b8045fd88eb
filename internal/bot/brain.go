package bot

import "beergame/internal/domain"

// View is what a role can see when it decides an order: its own node, the demand it has
// received so far and the supply line it has already paid for.
type View struct {
	Role      domain.Role
	Round     int
	Inventory int
	Backlog   int

	// DemandSeen holds the demand received in each completed round, oldest first.
	DemandSeen []int
	// Pipeline is stock this role has ordered but not yet received.
	Pipeline int
	// LeadTime is the number of rounds between placing an order and receiving its goods.
	LeadTime int
}

// Brain is the interface that all order policies implement.
type Brain interface {
	DecideOrder(v View) int
}

// Observe builds the view of role within team at the team's current round.
func Observe(s *domain.Session, team *domain.Team, role domain.Role) View {
	node := team.Nodes[role]
	round := team.CurrentRound
	v := View{
		Role:      role,
		Round:     round,
		Inventory: node.OnHandInventory,
		Backlog:   node.Backlog,
		LeadTime:  s.Config.InfoDelay + s.Config.ShipDelay,
	}

	v.DemandSeen = make([]int, 0, max(round-1, 0))
	for k := 1; k < round; k++ {
		v.DemandSeen = append(v.DemandSeen, demandReceived(s, team, role, k))
	}

	for _, sh := range node.IncomingShipments {
		v.Pipeline += sh.Amount
	}
	if up, ok := role.Upstream().Role(); ok {
		for _, o := range team.Nodes[up].IncomingOrders {
			if o.From == role {
				v.Pipeline += o.Amount
			}
		}
	}
	return v
}

// demandReceived replays what role saw as demand in round k.
func demandReceived(s *domain.Session, team *domain.Team, role domain.Role, k int) int {
	if role == domain.Retailer {
		return domain.DemandAt(s.Config.DemandPattern, k)
	}
	down, _ := role.Downstream().Role()
	placed := k - s.Config.InfoDelay
	history := team.Nodes[down].OrderHistory
	if placed < 1 || placed > len(history) {
		return 0
	}
	return history[placed-1]
}
