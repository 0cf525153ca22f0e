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

type fakeOrderFlowFetcher struct {
	data    types.OrderFlowData
	err     error
	fetches int
}

func (f *fakeOrderFlowFetcher) FetchOrderFlow(_ context.Context, _ string) (types.OrderFlowData, error) {
	f.fetches++
	if f.err != nil {
		return types.OrderFlowData{}, f.err
	}
	return f.data, nil
}

type OrderFlowEngineTestSuite struct {
	suite.Suite
	fetcher *fakeOrderFlowFetcher
	engine  *OrderFlowEngine
	clock   time.Time
}

func TestOrderFlowEngineSuite(t *testing.T) {
	suite.Run(t, new(OrderFlowEngineTestSuite))
}

func (suite *OrderFlowEngineTestSuite) SetupTest() {
	suite.fetcher = &fakeOrderFlowFetcher{}
	suite.engine = NewOrderFlowEngine(suite.fetcher, "BTCUSDT", logger.NewNopLogger())
	suite.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.engine.now = func() time.Time { return suite.clock }
}

func (suite *OrderFlowEngineTestSuite) TestFactorType() {
	suite.Equal(types.FactorOrderFlow, suite.engine.FactorType())
}

func (suite *OrderFlowEngineTestSuite) TestExtremePositiveFundingIsContrarianBearish() {
	suite.fetcher.data = types.OrderFlowData{
		FundingRate: 0.0008, // 0.08%
		BidVolume:   100,
		AskVolume:   100,
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.True(signal.Available)
	suite.InDelta(30.0, signal.BearishScore, 1e-9)
	suite.Zero(signal.BullishScore)
}

func (suite *OrderFlowEngineTestSuite) TestExtremeNegativeFundingIsContrarianBullish() {
	suite.fetcher.data = types.OrderFlowData{
		FundingRate: -0.0008,
		BidVolume:   100,
		AskVolume:   100,
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.InDelta(30.0, signal.BullishScore, 1e-9)
	suite.Zero(signal.BearishScore)
}

func (suite *OrderFlowEngineTestSuite) TestStackedBullishFactors() {
	suite.fetcher.data = types.OrderFlowData{
		FundingRate:        0.0003, // mild positive funding: bull 15
		OpenInterestChange: 6,      // strong OI increase: bull 25
		BidVolume:          200,    // ratio 2.0: bull 25
		AskVolume:          100,
		SpreadPercent:      0.005, // tight spread: both +10
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.InDelta(75.0, signal.BullishScore, 1e-9)
	suite.InDelta(10.0, signal.BearishScore, 1e-9)
	suite.Len(signal.Reasons, 4)
}

func (suite *OrderFlowEngineTestSuite) TestWideSpreadPenaltyFlooredAtZero() {
	// Only the wide-spread penalty applies; both sides would go to -20 and
	// must be floored at zero.
	suite.fetcher.data = types.OrderFlowData{
		BidVolume:     100,
		AskVolume:     100,
		SpreadPercent: 0.5,
	}

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.True(signal.Available)
	suite.Zero(signal.BullishScore)
	suite.Zero(signal.BearishScore)
}

func (suite *OrderFlowEngineTestSuite) TestCachedWithinRefreshInterval() {
	suite.fetcher.data = types.OrderFlowData{BidVolume: 100, AskVolume: 100}

	suite.engine.Analyze(context.Background(), nil)
	suite.clock = suite.clock.Add(30 * time.Second)
	suite.engine.Analyze(context.Background(), nil)

	suite.Equal(1, suite.fetcher.fetches)

	suite.clock = suite.clock.Add(DefaultOrderFlowRefresh)
	suite.engine.Analyze(context.Background(), nil)
	suite.Equal(2, suite.fetcher.fetches)
}

func (suite *OrderFlowEngineTestSuite) TestFetchErrorDegradesToCachedSignal() {
	suite.fetcher.data = types.OrderFlowData{FundingRate: -0.0008, BidVolume: 100, AskVolume: 100}
	first := suite.engine.Analyze(context.Background(), nil)
	suite.Require().True(first.Available)

	suite.fetcher.err = errors.New(errors.ErrCodeFeedFetchFailed, "exchange unreachable")
	suite.clock = suite.clock.Add(2 * DefaultOrderFlowRefresh)

	degraded := suite.engine.Analyze(context.Background(), nil)
	suite.True(degraded.Available)
	suite.Equal(first.BullishScore, degraded.BullishScore)
}

func (suite *OrderFlowEngineTestSuite) TestFetchErrorWithoutCacheIsUnavailable() {
	suite.fetcher.err = errors.New(errors.ErrCodeFeedFetchFailed, "exchange unreachable")

	signal := suite.engine.Analyze(context.Background(), nil)

	suite.False(signal.Available)
	suite.Zero(signal.BullishScore)
	suite.Zero(signal.BearishScore)
}
