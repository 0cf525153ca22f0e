package indicator

import "github.com/moznion/go-optional"

// DefaultRSIPeriod is the standard RSI lookback.
const DefaultRSIPeriod = 14

// RSI returns the Relative Strength Index using Wilder's smoothing. The
// result is always in [0,100] and equals 100 exactly when the smoothed
// average loss is zero. Requires period+1 values; returns None otherwise.
func RSI(series []float64, period int) optional.Option[float64] {
	if period <= 0 || len(series) < period+1 {
		return optional.None[float64]()
	}

	changes := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		changes = append(changes, series[i]-series[i-1])
	}

	gains := 0.0
	losses := 0.0

	for _, c := range changes[:period] {
		if c > 0 {
			gains += c
		} else {
			losses -= c
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// Wilder's smoothing over the remaining changes.
	for _, c := range changes[period:] {
		if c > 0 {
			avgGain = (avgGain*float64(period-1) + c) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - c) / float64(period)
		}
	}

	if avgLoss == 0 {
		return optional.Some(100.0)
	}

	rs := avgGain / avgLoss

	return optional.Some(100.0 - 100.0/(1.0+rs))
}
