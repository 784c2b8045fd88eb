package domain

// Variance returns the population variance of values, or 0 for fewer than two values.
func Variance(values []int) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	mean := float64(sum) / float64(len(values))
	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// BullwhipIndex compares the variance of orders reaching the top of the chain with the
// variance of customer demand. It is nil while either series is too short or demand is flat.
func BullwhipIndex(demand, upstreamOrders []int) *float64 {
	if len(demand) < 2 || len(upstreamOrders) < 2 {
		return nil
	}
	dv := Variance(demand)
	if dv == 0 {
		return nil
	}
	idx := Variance(upstreamOrders) / dv
	return &idx
}
