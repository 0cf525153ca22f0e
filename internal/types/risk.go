package types

// RiskParameters is the full set of position parameters computed for an
// approved trade. Computed on demand; never persisted by the core.
type RiskParameters struct {
	Quantity       float64 `json:"quantity" yaml:"quantity"`
	EntryPrice     float64 `json:"entry_price" yaml:"entry_price"`
	StopPrice      float64 `json:"stop_price" yaml:"stop_price"`
	TargetPrice    float64 `json:"target_price" yaml:"target_price"`
	StopDistance   float64 `json:"stop_distance" yaml:"stop_distance"`
	TargetDistance float64 `json:"target_distance" yaml:"target_distance"`
	// RiskAmount is the currency amount at risk if the stop is hit.
	RiskAmount  float64 `json:"risk_amount" yaml:"risk_amount"`
	RiskPercent float64 `json:"risk_percent" yaml:"risk_percent"`
	RiskReward  float64 `json:"risk_reward" yaml:"risk_reward"`
	Leverage    float64 `json:"leverage" yaml:"leverage"`
	// PositionValue is the notional value of the position at entry.
	PositionValue float64 `json:"position_value" yaml:"position_value"`
	ATR           float64 `json:"atr" yaml:"atr"`
	ATRPercent    float64 `json:"atr_percent" yaml:"atr_percent"`
}

// RiskMetrics is a read-only snapshot of the risk engine state, exposed for
// observability only.
type RiskMetrics struct {
	Equity           float64 `json:"equity" yaml:"equity"`
	OpenPositions    int     `json:"open_positions" yaml:"open_positions"`
	TotalExposure    float64 `json:"total_exposure" yaml:"total_exposure"`
	MaxRiskPerTrade  float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxLeverage      float64 `json:"max_leverage" yaml:"max_leverage"`
	CurrentATR       float64 `json:"current_atr" yaml:"current_atr"`
	RegimeMultiplier float64 `json:"regime_multiplier" yaml:"regime_multiplier"`
	// EffectiveRisk is maxRiskPerTrade scaled by the regime multiplier.
	EffectiveRisk float64 `json:"effective_risk" yaml:"effective_risk"`
}
