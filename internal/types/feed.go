package types

import "time"

// Trend is a coarse direction label for a macro series.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendFlat    Trend = "flat"
)

// OrderFlowData is the raw derivatives/order-book data the order-flow engine
// scores from.
type OrderFlowData struct {
	// FundingRate is the current funding rate as a fraction (0.0001 = 0.01%).
	FundingRate float64 `json:"funding_rate" yaml:"funding_rate"`
	// OpenInterest is the current open interest in contracts.
	OpenInterest float64 `json:"open_interest" yaml:"open_interest"`
	// OpenInterestChange is the percent change versus the previous interval.
	OpenInterestChange float64 `json:"open_interest_change" yaml:"open_interest_change"`
	BidVolume          float64 `json:"bid_volume" yaml:"bid_volume"`
	AskVolume          float64 `json:"ask_volume" yaml:"ask_volume"`
	// SpreadPercent is the volume-weighted bid/ask spread as a percentage.
	SpreadPercent float64   `json:"spread_percent" yaml:"spread_percent"`
	Time          time.Time `json:"time" yaml:"time"`
}

// BidAskRatio returns bid volume over ask volume, or zero when the ask side
// is empty.
func (d OrderFlowData) BidAskRatio() float64 {
	if d.AskVolume == 0 {
		return 0
	}

	return d.BidVolume / d.AskVolume
}

// EconomicEvent is one scheduled macro event from the economic calendar.
type EconomicEvent struct {
	Name       string    `json:"name" yaml:"name"`
	Time       time.Time `json:"time" yaml:"time"`
	Importance string    `json:"importance" yaml:"importance"`
}

// MacroData is the raw macro-fundamental data the macro engine scores from.
type MacroData struct {
	DollarIndex      float64 `json:"dollar_index" yaml:"dollar_index"`
	DollarIndexTrend Trend   `json:"dollar_index_trend" yaml:"dollar_index_trend"`
	Yield10Y         float64 `json:"yield_10y" yaml:"yield_10y"`
	Yield10YTrend    Trend   `json:"yield_10y_trend" yaml:"yield_10y_trend"`
	// ETFNetFlow is the net ETF flow in currency units (positive = inflow).
	ETFNetFlow float64         `json:"etf_net_flow" yaml:"etf_net_flow"`
	Events     []EconomicEvent `json:"events" yaml:"events"`
	Time       time.Time       `json:"time" yaml:"time"`
}

// HasHighImpactEventWithin reports whether a high-importance event is
// scheduled within the given window from now.
func (d MacroData) HasHighImpactEventWithin(now time.Time, window time.Duration) bool {
	for _, e := range d.Events {
		if e.Importance == "high" && e.Time.After(now) && e.Time.Sub(now) < window {
			return true
		}
	}

	return false
}

// WhaleSignal is the large-holder activity label.
type WhaleSignal string

const (
	WhaleAccumulation WhaleSignal = "accumulation"
	WhaleDistribution WhaleSignal = "distribution"
	WhaleNeutral      WhaleSignal = "neutral"
)

// SentimentData is the raw sentiment and on-chain data the sentiment engine
// scores from.
type SentimentData struct {
	// FearGreedIndex is in [0,100]; low = fear, high = greed.
	FearGreedIndex int    `json:"fear_greed_index" yaml:"fear_greed_index"`
	FearGreedClass string `json:"fear_greed_class" yaml:"fear_greed_class"`
	// NUPL is the net unrealized profit/loss ratio.
	NUPL float64 `json:"nupl" yaml:"nupl"`
	// MVRV is the market-value-to-realized-value ratio.
	MVRV float64 `json:"mvrv" yaml:"mvrv"`
	// ExchangeReserveChange is the change in exchange reserves in native
	// units; negative means coins leaving exchanges.
	ExchangeReserveChange float64     `json:"exchange_reserve_change" yaml:"exchange_reserve_change"`
	Whale                 WhaleSignal `json:"whale" yaml:"whale"`
	Time                  time.Time   `json:"time" yaml:"time"`
}
