package bot

import "beergame/internal/domain"

// EchoBot passes the last demand it received straight upstream.
type EchoBot struct{}

func (b *EchoBot) DecideOrder(v View) int {
	if len(v.DemandSeen) == 0 {
		return domain.NeutralOrder
	}
	return v.DemandSeen[len(v.DemandSeen)-1]
}

// SteadyBot orders the moving average of recent demand and ignores its stock.
type SteadyBot struct {
	Tuning Tuning
}

func (b *SteadyBot) DecideOrder(v View) int {
	return forecast(v.DemandSeen, b.Tuning.ForecastWindow)
}

// BaseStockBot tops its inventory position up to forecast demand over the lead time.
//
// The inventory position counts stock on hand minus backlog plus everything already in the
// supply line, so the bot does not reorder goods that are on their way.
type BaseStockBot struct {
	Tuning Tuning
}

func (b *BaseStockBot) DecideOrder(v View) int {
	f := forecast(v.DemandSeen, b.Tuning.ForecastWindow)
	target := f*(v.LeadTime+1) + b.Tuning.SafetyStock
	position := v.Inventory - v.Backlog + v.Pipeline
	return max(target-position, 0)
}

// forecast is the integer moving average of the last window values, NeutralOrder without history.
func forecast(history []int, window int) int {
	if len(history) == 0 {
		return domain.NeutralOrder
	}
	window = max(window, 1)
	start := max(len(history)-window, 0)
	sum := 0
	for _, d := range history[start:] {
		sum += d
	}
	return sum / (len(history) - start)
}
