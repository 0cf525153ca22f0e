package types

import "time"

// Action is the final trade decision for a cycle.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// FactorType identifies a factor scoring engine.
type FactorType string

const (
	FactorTechnical FactorType = "technical"
	FactorOrderFlow FactorType = "order_flow"
	FactorMacro     FactorType = "macro"
	FactorSentiment FactorType = "sentiment"
	// FactorRegime only appears in combined-signal breakdowns; the regime
	// classifier is not a scoring engine.
	FactorRegime FactorType = "regime"
)

// FactorSignal is the output of a single factor scoring engine. Bullish and
// bearish scores accumulate independently and are not constrained to sum to
// any total.
type FactorSignal struct {
	Factor FactorType `json:"factor" yaml:"factor"`
	Time   time.Time  `json:"time" yaml:"time"`
	// Available is false when the engine had no data at all; the combiner
	// must then exclude the factor entirely rather than treat it as zero.
	Available    bool     `json:"available" yaml:"available"`
	BullishScore float64  `json:"bullish_score" yaml:"bullish_score"`
	BearishScore float64  `json:"bearish_score" yaml:"bearish_score"`
	Reasons      []string `json:"reasons" yaml:"reasons"`
	// Raw holds the engine-specific data snapshot the score was derived from.
	Raw any `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Unavailable builds the sentinel signal an engine returns when its data
// source produced nothing and no cached value exists.
func Unavailable(factor FactorType, reason string) FactorSignal {
	return FactorSignal{
		Factor:       factor,
		Time:         time.Now(),
		Available:    false,
		BullishScore: 0,
		BearishScore: 0,
		Reasons:      []string{reason},
		Raw:          nil,
	}
}

// FactorBreakdown records one factor's weighted contribution to a combined
// signal, kept for observability.
type FactorBreakdown struct {
	Factor  FactorType `json:"factor" yaml:"factor"`
	Weight  float64    `json:"weight" yaml:"weight"`
	Bullish float64    `json:"bullish" yaml:"bullish"`
	Bearish float64    `json:"bearish" yaml:"bearish"`
	Details string     `json:"details" yaml:"details"`
}

// CombinedSignal is the confidence-weighted fusion of all factor signals,
// created fresh each cycle and immutable once returned.
type CombinedSignal struct {
	Time   time.Time `json:"time" yaml:"time"`
	Action Action    `json:"action" yaml:"action"`
	// Confidence is the post regime-multiplier confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// RawConfidence is the pre-adjustment confidence |net|/100.
	RawConfidence    float64              `json:"raw_confidence" yaml:"raw_confidence"`
	BullishScore     float64              `json:"bullish_score" yaml:"bullish_score"`
	BearishScore     float64              `json:"bearish_score" yaml:"bearish_score"`
	NetScore         float64              `json:"net_score" yaml:"net_score"`
	RegimeMultiplier float64              `json:"regime_multiplier" yaml:"regime_multiplier"`
	Regime           RegimeClassification `json:"regime" yaml:"regime"`
	Factors          []FactorBreakdown    `json:"factors" yaml:"factors"`
	Reason           string               `json:"reason" yaml:"reason"`
}
