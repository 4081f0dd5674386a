package analytics

// Forecast projects periods future values from a time-ordered series: the
// mean of the last seven points plus a linear drift estimated from the first
// and last three points. Series shorter than three points forecast their mean.
func Forecast(series []float64, periods int) []float64 {
	if periods <= 0 {
		periods = DefaultTrendPeriods
	}
	out := make([]float64, periods)
	if len(series) == 0 {
		return out
	}
	if len(series) < 3 {
		m := mean(series)
		for i := range out {
			out[i] = m
		}
		return out
	}

	tail := series
	if len(tail) > 7 {
		tail = tail[len(tail)-7:]
	}
	base := mean(tail)
	drift := (mean(series[len(series)-3:]) - mean(series[:3])) / float64(len(series)) * 3
	for i := range out {
		out[i] = base + drift*float64(i+1)
	}
	return out
}
