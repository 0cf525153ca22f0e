package indicator

import "math"

// DefaultTrendPeriod is the standard trend-strength lookback.
const DefaultTrendPeriod = 20

// TrendStrength fits a least-squares regression line through the last period
// values and returns the slope normalized by the mean price, scaled by 100
// and clamped to [-1,1]. Positive values indicate an uptrend. Returns 0 when
// the series is shorter than the period.
func TrendStrength(series []float64, period int) float64 {
	if period <= 0 || len(series) < period {
		return 0
	}

	window := series[len(series)-period:]
	slope, avg := regressionSlope(window)

	if avg == 0 {
		return 0
	}

	normalized := slope / avg * 100

	return math.Max(-1, math.Min(1, normalized))
}

// regressionSlope returns the least-squares slope and the mean of the
// series, with x taken as the 0-based index.
func regressionSlope(series []float64) (slope, avg float64) {
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range series {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	n := float64(len(series))

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}

	return (n*sumXY - sumX*sumY) / denom, sumY / n
}
