// Package indicator provides pure technical indicator calculations over
// ordered price/volume series (oldest first, newest last).
//
// Every function is deterministic and side-effect free. Inputs with
// insufficient history yield optional.None rather than an error or a panic,
// so downstream scoring can skip the contribution and degrade gracefully.
package indicator

import "github.com/moznion/go-optional"

// SMA returns the simple moving average of the last period values, or None
// when the series is shorter than the period.
func SMA(series []float64, period int) optional.Option[float64] {
	if period <= 0 || len(series) < period {
		return optional.None[float64]()
	}

	sum := 0.0
	for _, v := range series[len(series)-period:] {
		sum += v
	}

	return optional.Some(sum / float64(period))
}

// EMA returns the exponential moving average with multiplier 2/(period+1),
// seeded from the SMA of the first period values, or None when the series is
// shorter than the period.
func EMA(series []float64, period int) optional.Option[float64] {
	if period <= 0 || len(series) < period {
		return optional.None[float64]()
	}

	seed := 0.0
	for _, v := range series[:period] {
		seed += v
	}

	ema := seed / float64(period)
	multiplier := 2.0 / float64(period+1)

	for _, v := range series[period:] {
		ema = (v-ema)*multiplier + ema
	}

	return optional.Some(ema)
}

// mean returns the arithmetic mean of the series. Callers guarantee a
// non-empty input.
func mean(series []float64) float64 {
	sum := 0.0
	for _, v := range series {
		sum += v
	}

	return sum / float64(len(series))
}
