// Package combiner fuses the factor signals, the regime classification and
// the trading vetoes into a single actionable decision per cycle.
package combiner

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/argo-decision/internal/engine"
	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

const (
	// ConfidenceThreshold is the adjusted confidence a signal needs before
	// the combiner emits anything other than Hold. Deliberately higher than
	// a single-factor model would use.
	ConfidenceThreshold = 0.65

	// DefaultEngineTimeout bounds each provider's Analyze call during the
	// concurrent fan-out.
	DefaultEngineTimeout = 10 * time.Second

	// trendFollowBoost and meanReversionBoost scale the regime contribution
	// added to the technical signal's side.
	trendFollowBoost   = 0.5
	meanReversionBoost = 0.3
)

// Weights holds the factor weights. They must sum to 1.0.
type Weights struct {
	Technical float64 `json:"technical" yaml:"technical" validate:"gte=0,lte=1"`
	Regime    float64 `json:"regime" yaml:"regime" validate:"gte=0,lte=1"`
	OrderFlow float64 `json:"order_flow" yaml:"order_flow" validate:"gte=0,lte=1"`
	Macro     float64 `json:"macro" yaml:"macro" validate:"gte=0,lte=1"`
	Sentiment float64 `json:"sentiment" yaml:"sentiment" validate:"gte=0,lte=1"`
}

// DefaultWeights is the production weighting of the five factors.
func DefaultWeights() Weights {
	return Weights{
		Technical: 0.25,
		Regime:    0.20,
		OrderFlow: 0.25,
		Macro:     0.15,
		Sentiment: 0.15,
	}
}

// Validate checks that the weights sum to 1.0 within a small tolerance.
func (w Weights) Validate() error {
	sum := w.Technical + w.Regime + w.OrderFlow + w.Macro + w.Sentiment
	if math.Abs(sum-1.0) > 1e-9 {
		return errors.Newf(errors.ErrCodeInvalidWeights,
			"factor weights must sum to 1.0, got %.4f", sum)
	}

	return nil
}

func (w Weights) forFactor(factor types.FactorType) float64 {
	switch factor {
	case types.FactorTechnical:
		return w.Technical
	case types.FactorOrderFlow:
		return w.OrderFlow
	case types.FactorMacro:
		return w.Macro
	case types.FactorSentiment:
		return w.Sentiment
	default:
		return 0
	}
}

// MacroVeto suspends trading on unfavorable macro conditions. Implemented
// by the macro engine.
type MacroVeto interface {
	ShouldAvoidTrading() bool
}

// Combiner fans out over the factor providers, applies the regime gate and
// macro veto, and fuses the weighted scores into a CombinedSignal.
type Combiner struct {
	weights       Weights
	providers     []engine.FactorProvider
	macroVeto     MacroVeto
	engineTimeout time.Duration
	logger        *logger.Logger
}

// NewCombiner builds a combiner with the given per-engine timeout. A zero
// timeout falls back to DefaultEngineTimeout.
func NewCombiner(weights Weights, providers []engine.FactorProvider, macroVeto MacroVeto, engineTimeout time.Duration, l *logger.Logger) (*Combiner, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	if engineTimeout <= 0 {
		engineTimeout = DefaultEngineTimeout
	}

	return &Combiner{
		weights:       weights,
		providers:     providers,
		macroVeto:     macroVeto,
		engineTimeout: engineTimeout,
		logger:        l,
	}, nil
}

// Combine produces the decision for one cycle. It always returns a signal;
// every failure mode degrades to Hold with a diagnostic reason.
func (c *Combiner) Combine(ctx context.Context, snapshot *types.MarketSnapshot, regime types.RegimeClassification) types.CombinedSignal {
	now := snapshot.Time

	if !regime.TradingAllowed() {
		return c.hold(now, regime,
			fmt.Sprintf("regime %s forbids trading: %s", regime.Regime, regime.Reason))
	}

	signals := c.fanOut(ctx, snapshot)

	if c.macroVeto != nil && c.macroVeto.ShouldAvoidTrading() {
		return c.hold(now, regime, "macro conditions unfavorable")
	}

	var totalBullish, totalBearish float64
	breakdowns := make([]types.FactorBreakdown, 0, len(signals)+1)
	technicalAction := types.ActionHold

	for _, signal := range signals {
		if !signal.Available {
			continue
		}

		bullish := signal.BullishScore
		bearish := signal.BearishScore

		// Macro and sentiment can carry penalty-driven negatives; only the
		// positive part participates in the fusion.
		if signal.Factor == types.FactorMacro || signal.Factor == types.FactorSentiment {
			bullish = math.Max(0, bullish)
			bearish = math.Max(0, bearish)
		}

		weight := c.weights.forFactor(signal.Factor)
		totalBullish += bullish * weight
		totalBearish += bearish * weight

		if signal.Factor == types.FactorTechnical {
			if signal.BullishScore > signal.BearishScore {
				technicalAction = types.ActionBuy
			} else if signal.BearishScore > signal.BullishScore {
				technicalAction = types.ActionSell
			}
		}

		breakdowns = append(breakdowns, types.FactorBreakdown{
			Factor:  signal.Factor,
			Weight:  weight,
			Bullish: bullish * weight,
			Bearish: bearish * weight,
			Details: strings.Join(signal.Reasons, "; "),
		})
	}

	// The regime contributes by amplifying the technical side rather than
	// carrying a direction of its own.
	regimeScore := regime.Confidence * 100 * c.weights.Regime
	if technicalAction != types.ActionHold {
		var boost float64
		switch regime.Action {
		case types.RegimeActionTrendFollow:
			boost = regimeScore * trendFollowBoost
		case types.RegimeActionMeanReversion:
			boost = regimeScore * meanReversionBoost
		}

		if boost > 0 {
			if technicalAction == types.ActionBuy {
				totalBullish += boost
			} else {
				totalBearish += boost
			}

			breakdowns = append(breakdowns, types.FactorBreakdown{
				Factor:  types.FactorRegime,
				Weight:  c.weights.Regime,
				Bullish: boostIf(technicalAction == types.ActionBuy, boost),
				Bearish: boostIf(technicalAction == types.ActionSell, boost),
				Details: fmt.Sprintf("%s regime amplifies %s technical signal", regime.Regime, technicalAction),
			})
		}
	}

	net := totalBullish - totalBearish
	raw := math.Abs(net) / 100
	adjusted := math.Min(raw*regime.RiskMultiplier, 1.0)

	action := types.ActionHold
	reason := fmt.Sprintf("confidence %.2f below threshold %.2f", adjusted, ConfidenceThreshold)
	if adjusted >= ConfidenceThreshold {
		if totalBullish > totalBearish {
			action = types.ActionBuy
			reason = fmt.Sprintf("bullish consensus, net %.1f at confidence %.2f", net, adjusted)
		} else if totalBearish > totalBullish {
			action = types.ActionSell
			reason = fmt.Sprintf("bearish consensus, net %.1f at confidence %.2f", net, adjusted)
		}
	}

	c.logger.Info("signals combined",
		zap.String("action", string(action)),
		zap.Float64("confidence", adjusted),
		zap.Float64("raw_confidence", raw),
		zap.Float64("bullish", totalBullish),
		zap.Float64("bearish", totalBearish),
		zap.String("regime", string(regime.Regime)),
	)

	return types.CombinedSignal{
		Time:             now,
		Action:           action,
		Confidence:       adjusted,
		RawConfidence:    raw,
		BullishScore:     totalBullish,
		BearishScore:     totalBearish,
		NetScore:         net,
		RegimeMultiplier: regime.RiskMultiplier,
		Regime:           regime,
		Factors:          breakdowns,
		Reason:           reason,
	}
}

// fanOut runs every provider concurrently with a per-engine timeout and
// returns the signals in provider order.
func (c *Combiner) fanOut(ctx context.Context, snapshot *types.MarketSnapshot) []types.FactorSignal {
	signals := make([]types.FactorSignal, len(c.providers))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)

	for i, provider := range c.providers {
		g.Go(func() error {
			engineCtx, cancel := context.WithTimeout(ctx, c.engineTimeout)
			defer cancel()

			signal := provider.Analyze(engineCtx, snapshot)

			mu.Lock()
			signals[i] = signal
			mu.Unlock()

			return nil
		})
	}

	// Providers never return errors; Wait only synchronizes the fan-in.
	_ = g.Wait()

	return signals
}

func (c *Combiner) hold(now time.Time, regime types.RegimeClassification, reason string) types.CombinedSignal {
	c.logger.Info("holding", zap.String("reason", reason))

	return types.CombinedSignal{
		Time:             now,
		Action:           types.ActionHold,
		RegimeMultiplier: regime.RiskMultiplier,
		Regime:           regime,
		Reason:           reason,
	}
}

func boostIf(cond bool, boost float64) float64 {
	if cond {
		return boost
	}
	return 0
}
