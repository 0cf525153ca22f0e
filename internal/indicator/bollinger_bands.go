package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// Default Bollinger Band parameters.
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerWidth  = 2.0
)

// Bands holds the three Bollinger Band levels.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands computes bands at middle ± width standard deviations, where
// the middle band is the SMA of the last period values and the deviation is
// the population standard deviation of the same window. Returns None when
// the series is shorter than the period.
func BollingerBands(series []float64, period int, width float64) optional.Option[Bands] {
	sma := SMA(series, period)
	if sma.IsNone() {
		return optional.None[Bands]()
	}

	middle := sma.Unwrap()
	window := series[len(series)-period:]

	variance := 0.0
	for _, v := range window {
		diff := v - middle
		variance += diff * diff
	}

	variance /= float64(period)
	stddev := math.Sqrt(variance)

	return optional.Some(Bands{
		Upper:  middle + stddev*width,
		Middle: middle,
		Lower:  middle - stddev*width,
	})
}
