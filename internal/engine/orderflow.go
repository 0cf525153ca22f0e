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

// DefaultOrderFlowRefresh is how long a fetched order-flow snapshot stays
// fresh before the next Analyze refetches.
const DefaultOrderFlowRefresh = time.Minute

// OrderFlowFetcher provides derivatives and order-book data. Implemented by
// internal/feed.
type OrderFlowFetcher interface {
	FetchOrderFlow(ctx context.Context, symbol string) (types.OrderFlowData, error)
}

// OrderFlowEngine scores funding rate (contrarian at the extremes), open
// interest momentum, bid/ask volume imbalance and spread quality. Fetches
// are cached; a failed fetch degrades to the last good signal.
type OrderFlowEngine struct {
	fetcher OrderFlowFetcher
	symbol  string
	refresh time.Duration
	logger  *logger.Logger

	mu        sync.Mutex
	cached    optional.Option[types.FactorSignal]
	fetchedAt time.Time
	now       func() time.Time
}

func NewOrderFlowEngine(fetcher OrderFlowFetcher, symbol string, l *logger.Logger) *OrderFlowEngine {
	return &OrderFlowEngine{
		fetcher: fetcher,
		symbol:  symbol,
		refresh: DefaultOrderFlowRefresh,
		logger:  l,
		now:     time.Now,
	}
}

func (e *OrderFlowEngine) FactorType() types.FactorType {
	return types.FactorOrderFlow
}

func (e *OrderFlowEngine) Analyze(ctx context.Context, _ *types.MarketSnapshot) types.FactorSignal {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if e.cached.IsSome() && now.Sub(e.fetchedAt) < e.refresh {
		return e.cached.Unwrap()
	}

	data, err := e.fetcher.FetchOrderFlow(ctx, e.symbol)
	if err != nil {
		e.logger.Warn("order flow fetch failed",
			zap.String("symbol", e.symbol),
			zap.Error(err),
		)

		if e.cached.IsSome() {
			return e.cached.Unwrap()
		}

		return types.Unavailable(types.FactorOrderFlow, "order flow data unavailable")
	}

	signal := scoreOrderFlow(data, now)
	e.cached = optional.Some(signal)
	e.fetchedAt = now

	return signal
}

func scoreOrderFlow(data types.OrderFlowData, now time.Time) types.FactorSignal {
	var bullish, bearish float64
	reasons := make([]string, 0)

	// Funding rate, contrarian at the extremes. Thresholds in percent.
	fundingPercent := data.FundingRate * 100
	switch {
	case fundingPercent > 0.05:
		bearish += 30
		reasons = append(reasons, "funding extremely high, longs overleveraged")
	case fundingPercent > 0.02:
		bullish += 15
		reasons = append(reasons, "positive funding, bullish sentiment")
	case fundingPercent < -0.05:
		bullish += 30
		reasons = append(reasons, "funding extremely negative, shorts overleveraged")
	case fundingPercent < -0.02:
		bearish += 15
		reasons = append(reasons, "negative funding, bearish sentiment")
	}

	switch {
	case data.OpenInterestChange > 5:
		bullish += 25
		reasons = append(reasons, "strong open interest increase, momentum building")
	case data.OpenInterestChange > 2:
		bullish += 15
		reasons = append(reasons, "open interest increasing, fresh positions")
	case data.OpenInterestChange < -5:
		bearish += 25
		reasons = append(reasons, "strong open interest decrease, momentum fading")
	case data.OpenInterestChange < -2:
		bearish += 15
		reasons = append(reasons, "open interest decreasing, position unwinding")
	}

	ratio := data.BidAskRatio()
	switch {
	case ratio > 1.5:
		bullish += 25
		reasons = append(reasons, fmt.Sprintf("strong bid pressure (ratio %.2f)", ratio))
	case ratio > 1.2:
		bullish += 15
		reasons = append(reasons, fmt.Sprintf("bid pressure (ratio %.2f)", ratio))
	case ratio > 0 && ratio < 0.6:
		bearish += 25
		reasons = append(reasons, fmt.Sprintf("strong ask pressure (ratio %.2f)", ratio))
	case ratio > 0 && ratio < 0.8:
		bearish += 15
		reasons = append(reasons, fmt.Sprintf("ask pressure (ratio %.2f)", ratio))
	}

	if data.SpreadPercent < 0.01 {
		bullish += 10
		bearish += 10
		reasons = append(reasons, "tight spread, high liquidity")
	} else if data.SpreadPercent > 0.1 {
		bullish -= 20
		bearish -= 20
		reasons = append(reasons, "wide spread, low liquidity")
	}

	// The wide-spread penalty can drive a side negative; negative scores
	// are floored before publishing so the combiner only sees [0, inf).
	if bullish < 0 {
		bullish = 0
	}
	if bearish < 0 {
		bearish = 0
	}

	return types.FactorSignal{
		Factor:       types.FactorOrderFlow,
		Time:         now,
		Available:    true,
		BullishScore: bullish,
		BearishScore: bearish,
		Reasons:      reasons,
		Raw:          data,
	}
}
