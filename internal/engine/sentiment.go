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

// DefaultSentimentRefresh matches the update cadence of the public
// sentiment indices.
const DefaultSentimentRefresh = 30 * time.Minute

// SentimentBias labels the net sentiment backdrop.
type SentimentBias string

const (
	SentimentStrongBullish SentimentBias = "strong_bullish"
	SentimentBullish       SentimentBias = "bullish"
	SentimentNeutral       SentimentBias = "neutral"
	SentimentBearish       SentimentBias = "bearish"
	SentimentStrongBearish SentimentBias = "strong_bearish"
)

// SentimentFetcher provides sentiment and on-chain data. Implemented by
// internal/feed.
type SentimentFetcher interface {
	FetchSentiment(ctx context.Context) (types.SentimentData, error)
}

// SentimentEngine scores the Fear & Greed index (contrarian at the
// extremes), NUPL, MVRV, exchange reserve flows and whale activity. Results
// are cached for thirty minutes.
type SentimentEngine struct {
	fetcher SentimentFetcher
	refresh time.Duration
	logger  *logger.Logger

	mu        sync.Mutex
	cached    optional.Option[types.FactorSignal]
	bias      SentimentBias
	fetchedAt time.Time
	now       func() time.Time
}

func NewSentimentEngine(fetcher SentimentFetcher, l *logger.Logger) *SentimentEngine {
	return &SentimentEngine{
		fetcher: fetcher,
		refresh: DefaultSentimentRefresh,
		logger:  l,
		bias:    SentimentNeutral,
		now:     time.Now,
	}
}

func (e *SentimentEngine) FactorType() types.FactorType {
	return types.FactorSentiment
}

func (e *SentimentEngine) Analyze(ctx context.Context, _ *types.MarketSnapshot) types.FactorSignal {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if e.cached.IsSome() && now.Sub(e.fetchedAt) < e.refresh {
		return e.cached.Unwrap()
	}

	data, err := e.fetcher.FetchSentiment(ctx)
	if err != nil {
		e.logger.Warn("sentiment fetch failed", zap.Error(err))

		if e.cached.IsSome() {
			return e.cached.Unwrap()
		}

		return types.Unavailable(types.FactorSentiment, "sentiment data unavailable")
	}

	signal, bias := scoreSentiment(data, now)
	e.cached = optional.Some(signal)
	e.bias = bias
	e.fetchedAt = now

	e.logger.Info("sentiment factor refreshed",
		zap.String("bias", string(bias)),
		zap.Int("fear_greed", data.FearGreedIndex),
	)

	return signal
}

// BiasMultiplier returns the sentiment position-sizing multiplier.
func (e *SentimentEngine) BiasMultiplier() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.bias {
	case SentimentStrongBullish:
		return 1.2
	case SentimentBullish:
		return 1.1
	case SentimentBearish:
		return 0.9
	case SentimentStrongBearish:
		return 0.7
	default:
		return 1.0
	}
}

func scoreSentiment(data types.SentimentData, now time.Time) (types.FactorSignal, SentimentBias) {
	var bullish, bearish float64
	reasons := make([]string, 0)

	fg := data.FearGreedIndex
	switch {
	case fg <= 20:
		bullish += 35
		reasons = append(reasons, fmt.Sprintf("extreme fear (%d), contrarian buy opportunity", fg))
	case fg <= 40:
		bullish += 20
		reasons = append(reasons, fmt.Sprintf("fear (%d), market cautious", fg))
	case fg > 80:
		bearish += 35
		reasons = append(reasons, fmt.Sprintf("extreme greed (%d), contrarian sell signal", fg))
	case fg > 60:
		bearish += 20
		reasons = append(reasons, fmt.Sprintf("greed (%d), market euphoric", fg))
	}

	switch {
	case data.NUPL < 0:
		bullish += 20
		reasons = append(reasons, fmt.Sprintf("NUPL %.1f%%, market in capitulation", data.NUPL*100))
	case data.NUPL > 0.75:
		bearish += 20
		reasons = append(reasons, fmt.Sprintf("NUPL %.1f%%, market in euphoria", data.NUPL*100))
	case data.NUPL > 0.5:
		bullish += 10
		reasons = append(reasons, fmt.Sprintf("NUPL %.1f%%, healthy optimism", data.NUPL*100))
	}

	if data.MVRV > 0 && data.MVRV < 1 {
		bullish += 15
		reasons = append(reasons, fmt.Sprintf("MVRV %.2f, below realized value", data.MVRV))
	} else if data.MVRV > 3 {
		bearish += 15
		reasons = append(reasons, fmt.Sprintf("MVRV %.2f, overvalued territory", data.MVRV))
	}

	if data.ExchangeReserveChange < -10_000 {
		bullish += 15
		reasons = append(reasons, "exchange reserves falling, accumulation")
	} else if data.ExchangeReserveChange > 10_000 {
		bearish += 15
		reasons = append(reasons, "exchange reserves rising, distribution")
	}

	switch data.Whale {
	case types.WhaleAccumulation:
		bullish += 15
		reasons = append(reasons, "whale accumulation detected")
	case types.WhaleDistribution:
		bearish += 15
		reasons = append(reasons, "whale distribution detected")
	}

	net := bullish - bearish

	var bias SentimentBias
	switch {
	case net > 40:
		bias = SentimentStrongBullish
	case net > 20:
		bias = SentimentBullish
	case net < -40:
		bias = SentimentStrongBearish
	case net < -20:
		bias = SentimentBearish
	default:
		bias = SentimentNeutral
	}

	return types.FactorSignal{
		Factor:       types.FactorSentiment,
		Time:         now,
		Available:    true,
		BullishScore: bullish,
		BearishScore: bearish,
		Reasons:      reasons,
		Raw:          data,
	}, bias
}
