package indicator

import "github.com/moznion/go-optional"

// Default MACD parameters.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDResult holds the MACD line, its signal line, and the histogram
// (line minus signal).
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes the Moving Average Convergence Divergence. The MACD line is
// the fast EMA minus the slow EMA of the full series; the signal line is the
// EMA of the historical MACD-line values recomputed over each trailing
// window. When the MACD history is still shorter than the signal period the
// signal line is reported as zero. Returns None when the series is shorter
// than the slow period.
func MACD(series []float64, fast, slow, signalPeriod int) optional.Option[MACDResult] {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || len(series) < slow {
		return optional.None[MACDResult]()
	}

	fastEMA := EMA(series, fast)
	slowEMA := EMA(series, slow)

	if fastEMA.IsNone() || slowEMA.IsNone() {
		return optional.None[MACDResult]()
	}

	line := fastEMA.Unwrap() - slowEMA.Unwrap()

	// Rebuild the historical MACD line, one value per trailing window.
	history := make([]float64, 0, len(series)-slow)
	for i := slow; i < len(series); i++ {
		window := series[:i+1]
		f := EMA(window, fast)
		s := EMA(window, slow)
		history = append(history, f.Unwrap()-s.Unwrap())
	}

	signal := 0.0
	if v := EMA(history, signalPeriod); v.IsSome() {
		signal = v.Unwrap()
	}

	return optional.Some(MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	})
}
