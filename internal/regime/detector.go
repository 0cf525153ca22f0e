// Package regime classifies the market into one of a fixed set of regimes
// (trending, ranging, volatile, choppy, low_volatility, news_shock,
// uncertain) using a priority cascade over snapshot history. The regime
// gates trading and scales position sizing downstream.
package regime

import (
	"fmt"
	"math"
	"sync"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

const (
	// newsShockWindow is how many trailing bars are scanned for a shock.
	newsShockWindow = 10
	// newsShockPriceChange is the single-bar move that qualifies as a shock.
	newsShockPriceChange = 0.03
	// newsShockVolumeRatio is the volume spike multiple over the window average.
	newsShockVolumeRatio = 3.0

	// extremeVolatility is the annualized volatility above which the market
	// is classified as volatile regardless of structure.
	extremeVolatility = 1.5
	lowVolatility     = 0.5
	// hoursPerYear annualizes hourly-return volatility.
	hoursPerYear = 365 * 24

	// trendWindow covers two 14-bar directional-movement periods.
	trendWindow     = 28
	trendScoreLimit = 0.5

	// rangeWindow is the lookback for support/resistance touch counting.
	rangeWindow = 50
	// rangeTouchTolerance is the band width around the extremes, as a
	// fraction of the full range.
	rangeTouchTolerance = 0.02
	minRangeTouches     = 3

	// volumeWindow and lowVolumeRatio define the quiet-market volume test.
	volumeWindow   = 20
	lowVolumeRatio = 0.8

	// historyLimit bounds the retained classification history.
	historyLimit = 100
)

type volatilityLevel string

const (
	volatilityExtreme volatilityLevel = "extreme"
	volatilityHigh    volatilityLevel = "high"
	volatilityMedium  volatilityLevel = "medium"
	volatilityLow     volatilityLevel = "low"
)

type volatilityState struct {
	Annualized float64
	Level      volatilityLevel
}

type trendState struct {
	// Score combines the directional-move ratio with the normalized
	// regression slope; above trendScoreLimit the market is trending.
	Score   float64
	Bullish bool
}

type rangeState struct {
	IsRanging     bool
	Support       float64
	Resistance    float64
	TopTouches    int
	BottomTouches int
}

// Detector classifies market snapshots into regimes. Safe for concurrent
// reads of the current classification while Classify runs on the decision
// loop goroutine.
type Detector struct {
	mu      sync.RWMutex
	current optional.Option[types.RegimeClassification]
	history []types.RegimeClassification
	logger  *logger.Logger
}

func NewDetector(l *logger.Logger) *Detector {
	return &Detector{logger: l}
}

// Classify runs the priority cascade over the snapshot and records the
// result. Every snapshot maps to exactly one regime; snapshots below the
// minimum history return unknown with zero confidence and multiplier.
func (d *Detector) Classify(snapshot *types.MarketSnapshot) types.RegimeClassification {
	var classification types.RegimeClassification

	if !snapshot.HasMinimumHistory() {
		classification = types.RegimeClassification{
			Regime:     types.RegimeUnknown,
			Confidence: 0,
			Action:     types.RegimeActionWait,
			Reason:     fmt.Sprintf("insufficient history: %d bars", len(snapshot.Bars)),
			Time:       snapshot.Time,
		}
	} else {
		classification = d.classify(snapshot)
	}

	d.mu.Lock()
	d.current = optional.Some(classification)
	d.history = append(d.history, classification)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	d.mu.Unlock()

	d.logger.Info("market regime classified",
		zap.String("regime", string(classification.Regime)),
		zap.String("subtype", classification.Subtype),
		zap.Float64("confidence", classification.Confidence),
		zap.String("action", string(classification.Action)),
		zap.Float64("risk_multiplier", classification.RiskMultiplier),
	)

	return classification
}

func (d *Detector) classify(snapshot *types.MarketSnapshot) types.RegimeClassification {
	closes := snapshot.Closes()
	volumes := snapshot.Volumes()

	vol := measureVolatility(closes)
	trend := measureTrend(closes)
	ranging := detectRange(closes, snapshot.Highs(), snapshot.Lows())
	quietVolume := isLowVolume(volumes)

	if detectNewsShock(closes, volumes) {
		return types.RegimeClassification{
			Regime:         types.RegimeNewsShock,
			Subtype:        "high_risk",
			Confidence:     0.95,
			Action:         types.RegimeActionAvoid,
			RiskMultiplier: 0,
			Reason:         "news shock detected, price and volume spike",
			Time:           snapshot.Time,
		}
	}

	if vol.Level == volatilityExtreme {
		return types.RegimeClassification{
			Regime:         types.RegimeVolatile,
			Subtype:        "extreme",
			Confidence:     0.90,
			Action:         types.RegimeActionWidenStop,
			RiskMultiplier: 0.5,
			Reason:         fmt.Sprintf("extreme annualized volatility %.2f", vol.Annualized),
			Time:           snapshot.Time,
		}
	}

	if trend.Score > trendScoreLimit && !ranging.IsRanging {
		subtype := "bearish"
		if trend.Bullish {
			subtype = "bullish"
		}

		return types.RegimeClassification{
			Regime:         types.RegimeTrending,
			Subtype:        subtype,
			Confidence:     0.85,
			Action:         types.RegimeActionTrendFollow,
			RiskMultiplier: 1.2,
			Reason:         fmt.Sprintf("strong %s trend, score %.2f", subtype, trend.Score),
			Strategy:       "ema_crossover",
			Time:           snapshot.Time,
		}
	}

	if ranging.IsRanging && vol.Level == volatilityLow {
		return types.RegimeClassification{
			Regime:         types.RegimeRanging,
			Subtype:        "sideways",
			Confidence:     0.80,
			Action:         types.RegimeActionMeanReversion,
			RiskMultiplier: 1.0,
			Reason: fmt.Sprintf("range-bound, %d top and %d bottom touches",
				ranging.TopTouches, ranging.BottomTouches),
			Strategy:   "rsi_bollinger",
			Support:    optional.Some(ranging.Support),
			Resistance: optional.Some(ranging.Resistance),
			Time:       snapshot.Time,
		}
	}

	if ranging.IsRanging {
		return types.RegimeClassification{
			Regime:         types.RegimeChoppy,
			Subtype:        "whipsaw",
			Confidence:     0.75,
			Action:         types.RegimeActionReduceTrading,
			RiskMultiplier: 0.3,
			Reason:         "range-bound with elevated volatility, whipsaw risk",
			Time:           snapshot.Time,
		}
	}

	if vol.Level == volatilityLow && quietVolume {
		return types.RegimeClassification{
			Regime:         types.RegimeLowVolatility,
			Subtype:        "quiet",
			Confidence:     0.70,
			Action:         types.RegimeActionWait,
			RiskMultiplier: 0.5,
			Reason:         "low volatility and volume, waiting for setup",
			Time:           snapshot.Time,
		}
	}

	return types.RegimeClassification{
		Regime:         types.RegimeUncertain,
		Subtype:        "mixed_signals",
		Confidence:     0.50,
		Action:         types.RegimeActionConservative,
		RiskMultiplier: 0.7,
		Reason:         "mixed market signals",
		Time:           snapshot.Time,
	}
}

// Current returns the most recent classification, or None before the first
// Classify call.
func (d *Detector) Current() optional.Option[types.RegimeClassification] {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.current
}

// History returns a copy of the retained classification history, oldest
// first, bounded to the last 100 entries.
func (d *Detector) History() []types.RegimeClassification {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]types.RegimeClassification, len(d.history))
	copy(out, d.history)

	return out
}

// ShouldTrade reports whether the current regime permits opening positions.
// False before the first classification.
func (d *Detector) ShouldTrade() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.current.IsNone() {
		return false
	}

	return d.current.Unwrap().TradingAllowed()
}

// RiskMultiplier returns the sizing multiplier of the current regime, or
// 1.0 before the first classification.
func (d *Detector) RiskMultiplier() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.current.IsNone() {
		return 1.0
	}

	return d.current.Unwrap().RiskMultiplier
}

func measureVolatility(closes []float64) volatilityState {
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	annualized := math.Sqrt(variance) * math.Sqrt(hoursPerYear)

	level := volatilityLow
	switch {
	case annualized > extremeVolatility:
		level = volatilityExtreme
	case annualized > 1.0:
		level = volatilityHigh
	case annualized > lowVolatility:
		level = volatilityMedium
	}

	return volatilityState{Annualized: annualized, Level: level}
}

func measureTrend(closes []float64) trendState {
	window := closes
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	upMoves := 0
	downMoves := 0
	for i := 1; i < len(window); i++ {
		switch {
		case window[i] > window[i-1]:
			upMoves++
		case window[i] < window[i-1]:
			downMoves++
		}
	}

	directionRatio := math.Abs(float64(upMoves-downMoves)) / float64(len(window))

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range window {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	n := float64(len(window))
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	normalizedSlope := slope / (sumY / n)

	// The directional ratio damps the slope-derived score: a steep slope on
	// alternating up/down bars does not count as a trend.
	return trendState{
		Score:   directionRatio * math.Abs(normalizedSlope*100),
		Bullish: slope > 0,
	}
}

func detectRange(closes, highs, lows []float64) rangeState {
	start := len(closes) - rangeWindow
	if start < 0 {
		start = 0
	}

	recentHighs := highs[start:]
	recentLows := lows[start:]

	high := recentHighs[0]
	low := recentLows[0]
	for i := range recentHighs {
		high = math.Max(high, recentHighs[i])
		low = math.Min(low, recentLows[i])
	}

	priceRange := high - low
	if priceRange == 0 {
		return rangeState{}
	}

	tolerance := priceRange * rangeTouchTolerance
	topTouches := 0
	bottomTouches := 0
	for i := range recentHighs {
		if math.Abs(recentHighs[i]-high) < tolerance {
			topTouches++
		}
		if math.Abs(recentLows[i]-low) < tolerance {
			bottomTouches++
		}
	}

	return rangeState{
		IsRanging:     topTouches >= minRangeTouches && bottomTouches >= minRangeTouches,
		Support:       low,
		Resistance:    high,
		TopTouches:    topTouches,
		BottomTouches: bottomTouches,
	}
}

func isLowVolume(volumes []float64) bool {
	start := len(volumes) - volumeWindow
	if start < 0 {
		start = 0
	}

	recent := volumes[start:]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	avg := sum / float64(len(recent))
	if avg == 0 {
		return true
	}

	return volumes[len(volumes)-1] < avg*lowVolumeRatio
}

func detectNewsShock(closes, volumes []float64) bool {
	cStart := len(closes) - newsShockWindow
	vStart := len(volumes) - newsShockWindow
	if cStart < 0 || vStart < 0 {
		return false
	}

	recentCloses := closes[cStart:]
	recentVolumes := volumes[vStart:]

	var maxChange float64
	for i := 1; i < len(recentCloses); i++ {
		change := math.Abs((recentCloses[i] - recentCloses[i-1]) / recentCloses[i-1])
		maxChange = math.Max(maxChange, change)
	}

	var volumeSum, maxVolume float64
	for _, v := range recentVolumes {
		volumeSum += v
		maxVolume = math.Max(maxVolume, v)
	}
	avgVolume := volumeSum / float64(len(recentVolumes))
	if avgVolume == 0 {
		return false
	}

	return maxChange > newsShockPriceChange && maxVolume > avgVolume*newsShockVolumeRatio
}
