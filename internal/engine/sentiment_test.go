package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

type fakeSentimentFetcher struct {
	data    types.SentimentData
	err     error
	fetches int
}

func (f *fakeSentimentFetcher) FetchSentiment(_ context.Context) (types.SentimentData, error) {
	f.fetches++
	if f.err != nil {
		return types.SentimentData{}, f.err
	}
	return f.data, nil
}

type SentimentEngineTestSuite struct {
	suite.Suite
	fetcher *fakeSentimentFetcher
	engine  *SentimentEngine
	clock   time.Time
}

func TestSentimentEngineSuite(t *testing.T) {
	suite.Run(t, new(SentimentEngineTestSuite))
}

func (suite *SentimentEngineTestSuite) SetupTest() {
	suite.fetcher = &fakeSentimentFetcher{}
	suite.engine = NewSentimentEngine(suite.fetcher, logger.NewNopLogger())
	suite.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.engine.now = func() time.Time { return suite.clock }
}

func (suite *SentimentEngineTestSuite) TestFactorType() {
	suite.Equal(types.FactorSentiment, suite.engine.FactorType())
}

func (suite *SentimentEngineTestSuite) TestCapitulationIsContrarianBullish() {
	suite.fetcher.data = types.SentimentData{
		FearGreedIndex:        12, // extreme fear: bull 35
		NUPL:                  -0.1,
		MVRV:                  0.85,
		ExchangeReserveChange: -25_000,
		Whale:                 types.WhaleAccumulation,
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	// 35 + 20 (NUPL capitulation) + 15 (MVRV) + 15 (reserves) + 15 (whale).
	suite.InDelta(100.0, signal.BullishScore, 1e-9)
	suite.Zero(signal.BearishScore)
	suite.InDelta(1.2, suite.engine.BiasMultiplier(), 1e-9)
}

func (suite *SentimentEngineTestSuite) TestEuphoriaIsContrarianBearish() {
	suite.fetcher.data = types.SentimentData{
		FearGreedIndex:        88, // extreme greed: bear 35
		NUPL:                  0.8,
		MVRV:                  3.4,
		ExchangeReserveChange: 40_000,
		Whale:                 types.WhaleDistribution,
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.InDelta(100.0, signal.BearishScore, 1e-9)
	suite.Zero(signal.BullishScore)
	suite.InDelta(0.7, suite.engine.BiasMultiplier(), 1e-9)
}

func (suite *SentimentEngineTestSuite) TestHealthyOptimismScoresMildlyBullish() {
	suite.fetcher.data = types.SentimentData{
		FearGreedIndex: 55,
		NUPL:           0.6, // healthy optimism: bull 10
		MVRV:           1.8,
		Whale:          types.WhaleNeutral,
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.InDelta(10.0, signal.BullishScore, 1e-9)
	suite.Zero(signal.BearishScore)
	suite.InDelta(1.0, suite.engine.BiasMultiplier(), 1e-9)
}

func (suite *SentimentEngineTestSuite) TestThirtyMinuteCache() {
	suite.engine.Analyze(context.Background(), nil)
	suite.clock = suite.clock.Add(10 * time.Minute)
	suite.engine.Analyze(context.Background(), nil)
	suite.Equal(1, suite.fetcher.fetches)

	suite.clock = suite.clock.Add(DefaultSentimentRefresh)
	suite.engine.Analyze(context.Background(), nil)
	suite.Equal(2, suite.fetcher.fetches)
}

func (suite *SentimentEngineTestSuite) TestFetchErrorDegradesToCachedSignal() {
	suite.fetcher.data = types.SentimentData{FearGreedIndex: 12, MVRV: 1.8}
	first := suite.engine.Analyze(context.Background(), nil)
	suite.Require().True(first.Available)

	suite.fetcher.err = errors.New(errors.ErrCodeFeedFetchFailed, "api down")
	suite.clock = suite.clock.Add(2 * DefaultSentimentRefresh)

	degraded := suite.engine.Analyze(context.Background(), nil)
	suite.True(degraded.Available)
	suite.Equal(first.BullishScore, degraded.BullishScore)
}
