// Package risk implements the ATR-based dynamic risk engine: adaptive stop
// and target placement, volatility-scaled position sizing and leverage, a
// trailing-stop rule and the portfolio-level emergency brake.
package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/indicator"
	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

const (
	// stopATRMultiplier and targetATRMultiplier place the stop and target
	// relative to current volatility.
	stopATRMultiplier   = 1.5
	targetATRMultiplier = 3.0
	// trailATRMultiplier trails the stop wider than the entry stop so normal
	// movement does not shake the position out.
	trailATRMultiplier = 2.0

	// minRiskReward is the minimum target-to-stop distance ratio.
	minRiskReward = 1.5

	// MaxOpenPositions caps concurrent positions.
	MaxOpenPositions = 3

	// MinSignalConfidence is the combined-signal confidence below which no
	// trade is sized.
	MinSignalConfidence = 0.6

	// emergencyExposureRatio is the exposure/equity ratio that triggers a
	// close-everything response. Strictly greater-than.
	emergencyExposureRatio = 0.9

	// minATRBars is the history needed for the 14-period ATR.
	minATRBars = indicator.DefaultATRPeriod + 1

	// quantityPrecision floors order quantities to exchange lot precision.
	quantityPrecision = 3
)

// Approval is the outcome of a trade check: approved with sizing parameters
// or rejected with a reason.
type Approval struct {
	Parameters optional.Option[types.RiskParameters]
	Reason     string
}

// Approved reports whether the trade was accepted.
func (a Approval) Approved() bool {
	return a.Parameters.IsSome()
}

func rejected(reason string) Approval {
	return Approval{Reason: reason}
}

// Engine sizes and gates trades. State is written only by the decision
// loop; reads are safe from other goroutines.
type Engine struct {
	mu sync.RWMutex

	maxRiskPerTrade float64
	maxLeverage     float64

	equity           float64
	positions        []types.OpenPosition
	currentATR       float64
	regimeMultiplier float64

	logger *logger.Logger
}

func NewEngine(maxRiskPerTrade, maxLeverage float64, l *logger.Logger) *Engine {
	return &Engine{
		maxRiskPerTrade:  maxRiskPerTrade,
		maxLeverage:      maxLeverage,
		regimeMultiplier: 1.0,
		logger:           l,
	}
}

// SetEquity records the current account equity.
func (e *Engine) SetEquity(equity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.equity = equity
}

// UpdatePositions replaces the tracked open positions.
func (e *Engine) UpdatePositions(positions []types.OpenPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions = positions
}

// SetRegimeMultiplier sets the sizing multiplier derived from the current
// regime and factor biases.
func (e *Engine) SetRegimeMultiplier(multiplier float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regimeMultiplier = multiplier
}

// ApproveTrade runs the full gate-and-size pipeline for a combined signal
// at the given price. Every rejection carries a diagnostic reason.
func (e *Engine) ApproveTrade(signal types.CombinedSignal, price float64, snapshot *types.MarketSnapshot) Approval {
	e.mu.Lock()
	defer e.mu.Unlock()

	if signal.Action == types.ActionHold {
		return rejected("no actionable signal")
	}

	if len(snapshot.Bars) < minATRBars {
		return rejected("insufficient data for ATR calculation")
	}

	atrValue := indicator.ATR(snapshot.Highs(), snapshot.Lows(), snapshot.Closes(), indicator.DefaultATRPeriod)
	if atrValue.IsNone() {
		return rejected("insufficient data for ATR calculation")
	}
	atr := atrValue.Unwrap()
	e.currentATR = atr

	if e.equity <= 0 {
		return rejected("invalid account balance")
	}

	if len(e.positions) >= MaxOpenPositions {
		return rejected(fmt.Sprintf("maximum positions reached (%d)", MaxOpenPositions))
	}

	if signal.Confidence < MinSignalConfidence {
		return rejected(fmt.Sprintf("low confidence %.1f%%", signal.Confidence*100))
	}

	params := e.sizePosition(signal.Action, price, atr)

	if params.RiskReward < minRiskReward {
		return rejected(fmt.Sprintf("risk/reward %.2f too low (min %.1f)", params.RiskReward, minRiskReward))
	}

	if params.PositionValue > e.equity*e.maxLeverage {
		return rejected("position value exceeds maximum allowed")
	}

	if params.Quantity <= 0 {
		return rejected("position size rounds to zero")
	}

	e.logger.Info("trade approved",
		zap.String("action", string(signal.Action)),
		zap.Float64("quantity", params.Quantity),
		zap.Float64("stop", params.StopPrice),
		zap.Float64("target", params.TargetPrice),
		zap.Float64("leverage", params.Leverage),
		zap.Float64("atr", atr),
	)

	return Approval{Parameters: optional.Some(params)}
}

// sizePosition derives stop, target, quantity and leverage from ATR. Caller
// holds the lock.
func (e *Engine) sizePosition(action types.Action, price, atr float64) types.RiskParameters {
	stopDistance := atr * stopATRMultiplier
	targetDistance := atr * targetATRMultiplier

	var stopPrice, targetPrice float64
	if action == types.ActionBuy {
		stopPrice = price - stopDistance
		targetPrice = price + targetDistance
	} else {
		stopPrice = price + stopDistance
		targetPrice = price - targetDistance
	}

	// Fixed-fraction sizing: the stop distance absorbs exactly the risk
	// budget regardless of volatility.
	riskAmount := e.equity * e.maxRiskPerTrade * e.regimeMultiplier
	quantity := riskAmount / stopDistance

	positionValue := quantity * price
	leverage := positionValue / e.equity

	if leverage > e.maxLeverage {
		leverage = e.maxLeverage
		positionValue = e.equity * leverage
		quantity = positionValue / price
	}

	quantity = floorQuantity(quantity)

	riskReward := math.Abs(targetPrice-price) / math.Abs(price-stopPrice)

	return types.RiskParameters{
		Quantity:       quantity,
		EntryPrice:     price,
		StopPrice:      stopPrice,
		TargetPrice:    targetPrice,
		StopDistance:   stopDistance,
		TargetDistance: targetDistance,
		RiskAmount:     riskAmount,
		RiskPercent:    riskAmount / e.equity * 100,
		RiskReward:     riskReward,
		Leverage:       leverage,
		PositionValue:  positionValue,
		ATR:            atr,
		ATRPercent:     atr / price * 100,
	}
}

// TrailingStop proposes a new stop for an open position, two ATRs behind
// the current price. The stop only ever tightens, and never crosses back
// through the entry price; None means leave the stop where it is.
func (e *Engine) TrailingStop(position types.OpenPosition, price, atr float64) optional.Option[float64] {
	trailDistance := atr * trailATRMultiplier

	if position.Side == types.PositionSideLong {
		candidate := price - trailDistance
		current := position.StopPrice.TakeOr(0)
		if candidate > current && candidate > position.AvgPrice {
			return optional.Some(candidate)
		}

		return optional.None[float64]()
	}

	candidate := price + trailDistance
	current := position.StopPrice.TakeOr(math.MaxFloat64)
	if candidate < current && candidate < position.AvgPrice {
		return optional.Some(candidate)
	}

	return optional.None[float64]()
}

// TotalExposure returns the summed absolute notional of open positions.
func (e *Engine) TotalExposure() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.totalExposure()
}

func (e *Engine) totalExposure() float64 {
	var total float64
	for _, p := range e.positions {
		total += p.Notional()
	}

	return total
}

// ShouldEmergencyClose reports whether total exposure exceeds 90% of
// equity. Exactly 90% is still acceptable.
func (e *Engine) ShouldEmergencyClose() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.equity <= 0 {
		return false
	}

	ratio := e.totalExposure() / e.equity
	if ratio > emergencyExposureRatio {
		e.logger.Error("exposure ratio exceeds emergency threshold",
			zap.Float64("ratio", ratio),
			zap.Float64("threshold", emergencyExposureRatio),
		)

		return true
	}

	return false
}

// OptimalLeverage caps leverage by current volatility: the higher the ATR
// as a share of price, the lower the ceiling.
func (e *Engine) OptimalLeverage(atr, price float64) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	atrPercent := atr / price * 100

	switch {
	case atrPercent > 3:
		return math.Min(5, e.maxLeverage)
	case atrPercent > 2:
		return math.Min(7, e.maxLeverage)
	case atrPercent > 1:
		return math.Min(10, e.maxLeverage)
	default:
		return e.maxLeverage
	}
}

// Metrics returns a read-only snapshot of the engine state.
func (e *Engine) Metrics() types.RiskMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return types.RiskMetrics{
		Equity:           e.equity,
		OpenPositions:    len(e.positions),
		TotalExposure:    e.totalExposure(),
		MaxRiskPerTrade:  e.maxRiskPerTrade,
		MaxLeverage:      e.maxLeverage,
		CurrentATR:       e.currentATR,
		RegimeMultiplier: e.regimeMultiplier,
		EffectiveRisk:    e.maxRiskPerTrade * e.regimeMultiplier,
	}
}

// floorQuantity floors to the exchange lot precision instead of rounding,
// so the sized risk is never exceeded.
func floorQuantity(quantity float64) float64 {
	return decimal.NewFromFloat(quantity).RoundFloor(quantityPrecision).InexactFloat64()
}
