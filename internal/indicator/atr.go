package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// DefaultATRPeriod is the standard ATR lookback.
const DefaultATRPeriod = 14

// ATR computes the Average True Range: the SMA of the last period true
// ranges, where true range is the largest of high-low, |high-prevClose| and
// |low-prevClose|. Requires period+1 bars; returns None otherwise or when
// the input slices differ in length.
func ATR(highs, lows, closes []float64, period int) optional.Option[float64] {
	if period <= 0 || len(highs) < period+1 {
		return optional.None[float64]()
	}

	if len(lows) != len(highs) || len(closes) != len(highs) {
		return optional.None[float64]()
	}

	trueRanges := make([]float64, 0, len(highs)-1)

	for i := 1; i < len(highs); i++ {
		prevClose := closes[i-1]
		tr := math.Max(
			highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-prevClose), math.Abs(lows[i]-prevClose)),
		)
		trueRanges = append(trueRanges, tr)
	}

	return SMA(trueRanges, period)
}
