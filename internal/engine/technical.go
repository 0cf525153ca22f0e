package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/indicator"
	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

// SignalCooldown is the minimum interval between non-hold technical
// emissions. Repeated strong readings inside the window score zero.
const SignalCooldown = 5 * time.Minute

// strongSignalConfidence is the score level (out of 100) above which an
// emission counts as non-hold and arms the cooldown.
const strongSignalConfidence = 0.6

// TechnicalEngine scores the snapshot's own price history: RSI zones, MACD
// crossover state, EMA 9/21/50 alignment, Bollinger band position and trend
// strength. It is fully local and synchronous.
type TechnicalEngine struct {
	mu       sync.Mutex
	lastEmit time.Time
	logger   *logger.Logger

	// now is replaceable for cooldown tests.
	now func() time.Time
}

func NewTechnicalEngine(l *logger.Logger) *TechnicalEngine {
	return &TechnicalEngine{
		logger: l,
		now:    time.Now,
	}
}

func (e *TechnicalEngine) FactorType() types.FactorType {
	return types.FactorTechnical
}

func (e *TechnicalEngine) Analyze(_ context.Context, snapshot *types.MarketSnapshot) types.FactorSignal {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if !snapshot.HasMinimumHistory() {
		return types.Unavailable(types.FactorTechnical,
			fmt.Sprintf("insufficient history: %d bars", len(snapshot.Bars)))
	}

	if now.Sub(e.lastEmit) < SignalCooldown {
		return types.FactorSignal{
			Factor:    types.FactorTechnical,
			Time:      now,
			Available: true,
			Reasons:   []string{"signal cooldown active"},
		}
	}

	closes := snapshot.Closes()
	price := snapshot.Price

	var bullish, bearish float64
	reasons := make([]string, 0)

	if rsi := indicator.RSI(closes, indicator.DefaultRSIPeriod); rsi.IsSome() {
		v := rsi.Unwrap()
		switch {
		case v < 30:
			bullish += 30
			reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", v))
		case v > 70:
			bearish += 30
			reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", v))
		case v < 45:
			bullish += 10
			reasons = append(reasons, fmt.Sprintf("RSI bullish (%.1f)", v))
		case v > 55:
			bearish += 10
			reasons = append(reasons, fmt.Sprintf("RSI bearish (%.1f)", v))
		}
	}

	if macd := indicator.MACD(closes, indicator.DefaultMACDFast, indicator.DefaultMACDSlow, indicator.DefaultMACDSignal); macd.IsSome() {
		m := macd.Unwrap()
		if m.Histogram > 0 && m.Line > m.Signal {
			bullish += 25
			reasons = append(reasons, "MACD bullish crossover")
		} else if m.Histogram < 0 && m.Line < m.Signal {
			bearish += 25
			reasons = append(reasons, "MACD bearish crossover")
		}
	}

	ema9 := indicator.EMA(closes, 9)
	ema21 := indicator.EMA(closes, 21)
	ema50 := indicator.EMA(closes, 50)
	if ema9.IsSome() && ema21.IsSome() && ema50.IsSome() {
		e9, e21, e50 := ema9.Unwrap(), ema21.Unwrap(), ema50.Unwrap()
		switch {
		case e9 > e21 && e21 > e50 && price > e9:
			bullish += 20
			reasons = append(reasons, "bullish EMA alignment")
		case e9 < e21 && e21 < e50 && price < e9:
			bearish += 20
			reasons = append(reasons, "bearish EMA alignment")
		case e9 > e21 && price > e9:
			bullish += 10
			reasons = append(reasons, "partial bullish EMA")
		case e9 < e21 && price < e9:
			bearish += 10
			reasons = append(reasons, "partial bearish EMA")
		}
	}

	if bb := indicator.BollingerBands(closes, indicator.DefaultBollingerPeriod, indicator.DefaultBollingerWidth); bb.IsSome() {
		bands := bb.Unwrap()
		switch {
		case price < bands.Lower:
			bullish += 15
			reasons = append(reasons, "price below lower Bollinger band")
		case price > bands.Upper:
			bearish += 15
			reasons = append(reasons, "price above upper Bollinger band")
		case price < bands.Middle:
			bullish += 5
		case price > bands.Middle:
			bearish += 5
		}
	}

	trend := indicator.TrendStrength(closes, indicator.DefaultTrendPeriod)
	if trend > 0.3 {
		bullish += 10
		reasons = append(reasons, fmt.Sprintf("strong uptrend (%.2f)", trend))
	} else if trend < -0.3 {
		bearish += 10
		reasons = append(reasons, fmt.Sprintf("strong downtrend (%.2f)", trend))
	}

	// A strong one-sided reading arms the cooldown so the next cycles hold.
	confidence := max(bullish, bearish) / 100
	if bullish != bearish && confidence > strongSignalConfidence {
		e.lastEmit = now
	}

	e.logger.Debug("technical factor scored",
		zap.Float64("bullish", bullish),
		zap.Float64("bearish", bearish),
		zap.Float64("trend_strength", trend),
	)

	return types.FactorSignal{
		Factor:       types.FactorTechnical,
		Time:         now,
		Available:    true,
		BullishScore: bullish,
		BearishScore: bearish,
		Reasons:      reasons,
	}
}
