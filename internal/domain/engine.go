package domain

// ResolveOrder picks the amount a role orders this round: the staged amount when present,
// otherwise a repeat of a positive previous order, otherwise NeutralOrder.
func ResolveOrder(staged int, isStaged bool, lastOrderPlaced int) int {
	if isStaged {
		return staged
	}
	if lastOrderPlaced > 0 {
		return lastOrderPlaced
	}
	return NeutralOrder
}

// Fulfillment is the outcome of serving demand from available stock.
type Fulfillment struct {
	Shipped int
	OnHand  int
	Backlog int
}

// Fulfill serves demand plus existing backlog from available stock.
func Fulfill(available, demand, backlogBefore int) Fulfillment {
	total := demand + backlogBefore
	shipped := min(available, total)
	return Fulfillment{
		Shipped: shipped,
		OnHand:  available - shipped,
		Backlog: total - shipped,
	}
}

// commitTeam applies one round to team at round r. The team is mutated in place, so
// callers work on a cloned session.
func commitTeam(team *Team, cfg Config, round int, staged TeamOrders) {
	// Orders are placed before anything is received, so this round's orders only
	// become visible through their arrival rounds.
	for _, role := range Roles {
		node := team.Nodes[role]
		amount, ok := staged.Get(role)
		node.LastOrderPlaced = ResolveOrder(amount, ok, node.LastOrderPlaced)
		placeOrder(team, node, cfg, round)
	}

	for _, role := range Roles {
		node := team.Nodes[role]

		available := node.OnHandInventory + receiveShipments(node, round)

		var demand int
		if role == Retailer {
			demand = DemandAt(cfg.DemandPattern, round)
		} else {
			demand = receiveOrders(node, round)
		}
		node.LastDemandReceived = demand

		f := Fulfill(available, demand, node.Backlog)
		node.OnHandInventory = f.OnHand
		node.Backlog = f.Backlog

		if down, ok := role.Downstream().Role(); ok {
			downNode := team.Nodes[down]
			downNode.IncomingShipments = append(downNode.IncomingShipments, Shipment{
				Amount:       f.Shipped,
				ArrivalRound: round + cfg.ShipDelay,
				From:         RoleEndpoint(role),
				To:           down,
			})
		}

		node.CostHolding += f.OnHand * cfg.HoldingCost
		node.CostStockout += f.Backlog * cfg.BackorderCost

		node.OrderHistory = append(node.OrderHistory, node.LastOrderPlaced)
		node.InventoryHistory = append(node.InventoryHistory, f.OnHand)
		node.BacklogHistory = append(node.BacklogHistory, f.Backlog)
	}

	team.TotalCost = team.TotalNodeCost()
	team.CurrentRound = round + 1
	if team.Finished(cfg.TotalRounds) {
		team.RoundPhase = RoundProcessing
	} else {
		team.RoundPhase = RoundOrdering
	}
}

func placeOrder(team *Team, node *Node, cfg Config, round int) {
	up := node.Role.Upstream()
	if upRole, ok := up.Role(); ok {
		upNode := team.Nodes[upRole]
		upNode.IncomingOrders = append(upNode.IncomingOrders, Order{
			Amount:       node.LastOrderPlaced,
			PlacedRound:  round,
			ArrivalRound: round + cfg.InfoDelay,
			From:         node.Role,
			To:           up,
		})
		return
	}
	// The supplier never runs short: the order turns straight into a shipment.
	node.IncomingShipments = append(node.IncomingShipments, Shipment{
		Amount:       node.LastOrderPlaced,
		ArrivalRound: round + cfg.ShipDelay,
		From:         up,
		To:           node.Role,
	})
}

// receiveShipments removes arrived shipments from the pipeline and returns their total.
func receiveShipments(node *Node, round int) int {
	received := 0
	pending := node.IncomingShipments[:0]
	for _, s := range node.IncomingShipments {
		if s.ArrivalRound <= round {
			received += s.Amount
			continue
		}
		pending = append(pending, s)
	}
	node.IncomingShipments = pending
	return received
}

// receiveOrders removes arrived orders from the pipeline and returns their total.
func receiveOrders(node *Node, round int) int {
	received := 0
	pending := node.IncomingOrders[:0]
	for _, o := range node.IncomingOrders {
		if o.ArrivalRound <= round {
			received += o.Amount
			continue
		}
		pending = append(pending, o)
	}
	node.IncomingOrders = pending
	return received
}
