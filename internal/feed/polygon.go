package feed

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// PolygonMarketSource builds snapshots from Polygon hourly aggregates, for
// instruments Binance does not carry. Polygon has no order book endpoint on
// this plan, so snapshots carry an empty book and the order-flow factor
// degrades gracefully.
type PolygonMarketSource struct {
	client *polygon.Client
	ticker string
}

func NewPolygonMarketSource(apiKey, ticker string) (*PolygonMarketSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon api key is required")
	}

	return &PolygonMarketSource{
		client: polygon.New(apiKey),
		ticker: ticker,
	}, nil
}

func (s *PolygonMarketSource) Snapshot(ctx context.Context) (*types.MarketSnapshot, error) {
	now := time.Now().UTC()
	from := now.Add(-time.Duration(snapshotBars) * time.Hour)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     s.ticker,
		Multiplier: 1,
		Timespan:   models.Hour,
		From:       models.Millis(from),
		To:         models.Millis(now),
	}.WithLimit(snapshotBars)

	iter := s.client.ListAggs(ctx, params)

	bars := make([]types.Bar, 0, snapshotBars)
	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.Bar{
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"failed to fetch %s aggregates", s.ticker)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no aggregates for %s", s.ticker)
	}

	last := bars[len(bars)-1]

	return &types.MarketSnapshot{
		Symbol: s.ticker,
		Time:   last.Time,
		Bars:   bars,
		Price:  last.Close,
	}, nil
}
