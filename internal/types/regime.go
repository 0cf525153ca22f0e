package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type Regime string

const (
	// RegimeTrending is a directional market with a strong regression slope.
	RegimeTrending Regime = "trending"
	// RegimeRanging is a sideways market bounded by support and resistance.
	RegimeRanging Regime = "ranging"
	// RegimeVolatile is a market with extreme annualized volatility.
	RegimeVolatile Regime = "volatile"
	// RegimeChoppy is a range-bound market with elevated volatility.
	RegimeChoppy Regime = "choppy"
	// RegimeLowVolatility is a quiet market with low volatility and volume.
	RegimeLowVolatility Regime = "low_volatility"
	// RegimeNewsShock is a sudden price move accompanied by a volume spike.
	RegimeNewsShock Regime = "news_shock"
	// RegimeUncertain is the default when no other regime matches.
	RegimeUncertain Regime = "uncertain"
	// RegimeUnknown indicates insufficient history for classification.
	RegimeUnknown Regime = "unknown"
)

// RegimeAction is the recommended trading posture for a regime.
type RegimeAction string

const (
	RegimeActionAvoid         RegimeAction = "avoid_trading"
	RegimeActionWidenStop     RegimeAction = "widen_stop"
	RegimeActionTrendFollow   RegimeAction = "trend_follow"
	RegimeActionMeanReversion RegimeAction = "mean_reversion"
	RegimeActionReduceTrading RegimeAction = "reduce_trading"
	RegimeActionWait          RegimeAction = "wait"
	RegimeActionConservative  RegimeAction = "conservative"
)

// RegimeClassification is the full output of the regime classifier for one
// snapshot. Produced once per decision cycle.
type RegimeClassification struct {
	Regime     Regime       `json:"regime" yaml:"regime"`
	Subtype    string       `json:"subtype" yaml:"subtype"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
	Action     RegimeAction `json:"action" yaml:"action"`
	// RiskMultiplier scales position sizing; zero forbids trading entirely.
	RiskMultiplier float64 `json:"risk_multiplier" yaml:"risk_multiplier"`
	Reason         string  `json:"reason" yaml:"reason"`
	// Strategy is an optional hint for the execution layer, e.g. "ema_crossover".
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Support and Resistance are populated for range-bound regimes.
	Support    optional.Option[float64] `json:"support,omitempty" yaml:"support,omitempty"`
	Resistance optional.Option[float64] `json:"resistance,omitempty" yaml:"resistance,omitempty"`
	Time       time.Time                `json:"time" yaml:"time"`
}

// TradingAllowed reports whether this regime permits opening new positions.
// The combiner still applies its own confidence threshold on top.
func (c RegimeClassification) TradingAllowed() bool {
	switch c.Regime {
	case RegimeNewsShock, RegimeChoppy, RegimeLowVolatility, RegimeUnknown:
		return false
	default:
		return true
	}
}
