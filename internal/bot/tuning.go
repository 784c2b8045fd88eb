package bot

// Tuning holds the knobs of the forecasting policies.
type Tuning struct {
	// ForecastWindow is the number of recent rounds averaged into a demand forecast.
	ForecastWindow int
	// SafetyStock is added on top of the base-stock target.
	SafetyStock int
}

// DefaultTuning matches a four-round moving average with no safety buffer.
var DefaultTuning = Tuning{
	ForecastWindow: 4,
	SafetyStock:    0,
}
