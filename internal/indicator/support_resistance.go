package indicator

import (
	"math"
	"sort"
)

// DefaultLevelTolerance is the grouping tolerance for nearby levels, as a
// fraction of the full-series price range.
const DefaultLevelTolerance = 0.02

// LevelKind distinguishes support from resistance.
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
)

// Level is one detected support or resistance level. Touches counts how many
// local extremes were merged into it; levels with more touches rank first.
type Level struct {
	Price   float64
	Kind    LevelKind
	Touches int
}

// SupportResistance detects 5-point local peaks (resistance) and troughs
// (support), merges levels of the same kind lying within tolerance of the
// full-series range (averaging their prices), and returns them sorted by
// touch count descending. Series shorter than 5 points yield no levels.
func SupportResistance(series []float64, tolerance float64) []Level {
	if len(series) < 5 {
		return nil
	}

	low := series[0]
	high := series[0]

	for _, v := range series {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}

	priceRange := high - low
	if priceRange == 0 {
		return nil
	}

	levels := make([]Level, 0)

	for i := 2; i < len(series)-2; i++ {
		v := series[i]

		isPeak := v > series[i-1] && v > series[i+1] && v > series[i-2] && v > series[i+2]
		if isPeak {
			levels = mergeLevel(levels, Level{Price: v, Kind: LevelResistance, Touches: 1}, priceRange, tolerance)
		}

		isTrough := v < series[i-1] && v < series[i+1] && v < series[i-2] && v < series[i+2]
		if isTrough {
			levels = mergeLevel(levels, Level{Price: v, Kind: LevelSupport, Touches: 1}, priceRange, tolerance)
		}
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Touches > levels[j].Touches
	})

	return levels
}

// mergeLevel folds a candidate level into an existing one of the same kind
// when their prices lie within tolerance of the range, averaging the prices.
func mergeLevel(levels []Level, candidate Level, priceRange, tolerance float64) []Level {
	for i := range levels {
		if levels[i].Kind != candidate.Kind {
			continue
		}

		if math.Abs(levels[i].Price-candidate.Price)/priceRange < tolerance {
			levels[i].Price = (levels[i].Price + candidate.Price) / 2
			levels[i].Touches++

			return levels
		}
	}

	return append(levels, candidate)
}
