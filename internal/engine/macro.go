package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

const (
	// DefaultMacroRefresh matches the slow cadence of macro series.
	DefaultMacroRefresh = time.Hour

	// strongETFFlow is the net flow, in currency units, that counts as a
	// strong institutional signal.
	strongETFFlow = 100_000_000

	// highImpactEventWindow is how far ahead scheduled events weigh on the
	// score.
	highImpactEventWindow = 24 * time.Hour
)

// MacroBias labels the net macro backdrop.
type MacroBias string

const (
	MacroStrongBullish MacroBias = "strong_bullish"
	MacroBullish       MacroBias = "bullish"
	MacroNeutral       MacroBias = "neutral"
	MacroBearish       MacroBias = "bearish"
	MacroStrongBearish MacroBias = "strong_bearish"
	MacroCaution       MacroBias = "caution"
)

// MacroFetcher provides macro-fundamental data. Implemented by internal/feed.
type MacroFetcher interface {
	FetchMacro(ctx context.Context) (types.MacroData, error)
}

// MacroEngine scores the dollar index trend, 10-year yield trend, ETF net
// flows and the economic calendar. Macro data moves slowly, so results are
// cached for an hour. Beyond the factor score it exposes a trading veto
// (ShouldAvoidTrading) and a sizing bias multiplier.
type MacroEngine struct {
	fetcher MacroFetcher
	refresh time.Duration
	logger  *logger.Logger

	mu        sync.Mutex
	cached    optional.Option[types.FactorSignal]
	bias      MacroBias
	fetchedAt time.Time
	now       func() time.Time
}

func NewMacroEngine(fetcher MacroFetcher, l *logger.Logger) *MacroEngine {
	return &MacroEngine{
		fetcher: fetcher,
		refresh: DefaultMacroRefresh,
		logger:  l,
		bias:    MacroNeutral,
		now:     time.Now,
	}
}

func (e *MacroEngine) FactorType() types.FactorType {
	return types.FactorMacro
}

func (e *MacroEngine) Analyze(ctx context.Context, _ *types.MarketSnapshot) types.FactorSignal {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if e.cached.IsSome() && now.Sub(e.fetchedAt) < e.refresh {
		return e.cached.Unwrap()
	}

	data, err := e.fetcher.FetchMacro(ctx)
	if err != nil {
		e.logger.Warn("macro fetch failed", zap.Error(err))

		if e.cached.IsSome() {
			return e.cached.Unwrap()
		}

		return types.Unavailable(types.FactorMacro, "macro data unavailable")
	}

	signal, bias := scoreMacro(data, now)
	e.cached = optional.Some(signal)
	e.bias = bias
	e.fetchedAt = now

	e.logger.Info("macro factor refreshed",
		zap.String("bias", string(bias)),
		zap.Float64("bullish", signal.BullishScore),
		zap.Float64("bearish", signal.BearishScore),
	)

	return signal
}

// ShouldAvoidTrading reports the macro veto: an imminent high-impact event
// or a strongly bearish backdrop suspends new entries.
func (e *MacroEngine) ShouldAvoidTrading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bias == MacroCaution || e.bias == MacroStrongBearish
}

// BiasMultiplier returns the macro position-sizing multiplier.
func (e *MacroEngine) BiasMultiplier() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.bias {
	case MacroStrongBullish:
		return 1.3
	case MacroBullish:
		return 1.1
	case MacroBearish:
		return 0.8
	case MacroStrongBearish:
		return 0.5
	case MacroCaution:
		return 0.6
	default:
		return 1.0
	}
}

func scoreMacro(data types.MacroData, now time.Time) (types.FactorSignal, MacroBias) {
	var bullish, bearish float64
	reasons := make([]string, 0)

	switch data.DollarIndexTrend {
	case types.TrendFalling:
		bullish += 25
		reasons = append(reasons, fmt.Sprintf("weak dollar (%.2f), bullish for crypto", data.DollarIndex))
	case types.TrendRising:
		bearish += 25
		reasons = append(reasons, fmt.Sprintf("strong dollar (%.2f), bearish for crypto", data.DollarIndex))
	}

	switch data.Yield10YTrend {
	case types.TrendFalling:
		bullish += 20
		reasons = append(reasons, fmt.Sprintf("falling yields (%.2f%%), risk-on", data.Yield10Y))
	case types.TrendRising:
		bearish += 20
		reasons = append(reasons, fmt.Sprintf("rising yields (%.2f%%), risk-off", data.Yield10Y))
	}

	switch {
	case data.ETFNetFlow > strongETFFlow:
		bullish += 30
		reasons = append(reasons, fmt.Sprintf("strong ETF inflow ($%.0fM)", data.ETFNetFlow/1e6))
	case data.ETFNetFlow > 0:
		bullish += 15
		reasons = append(reasons, fmt.Sprintf("positive ETF flow ($%.0fM)", data.ETFNetFlow/1e6))
	case data.ETFNetFlow < -strongETFFlow:
		bearish += 30
		reasons = append(reasons, fmt.Sprintf("strong ETF outflow ($%.0fM)", data.ETFNetFlow/1e6))
	case data.ETFNetFlow < 0:
		bearish += 15
		reasons = append(reasons, fmt.Sprintf("negative ETF flow ($%.0fM)", data.ETFNetFlow/1e6))
	}

	highImpactEvent := data.HasHighImpactEventWithin(now, highImpactEventWindow)
	if highImpactEvent {
		bearish += 25
		reasons = append(reasons, "high impact macro event within 24h, reduce exposure")
	}

	net := bullish - bearish

	var bias MacroBias
	switch {
	case highImpactEvent:
		bias = MacroCaution
	case net > 40:
		bias = MacroStrongBullish
	case net > 20:
		bias = MacroBullish
	case net < -40:
		bias = MacroStrongBearish
	case net < -20:
		bias = MacroBearish
	default:
		bias = MacroNeutral
	}

	return types.FactorSignal{
		Factor:       types.FactorMacro,
		Time:         now,
		Available:    true,
		BullishScore: bullish,
		BearishScore: bearish,
		Reasons:      reasons,
		Raw:          data,
	}, bias
}
