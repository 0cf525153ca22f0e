package risk

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

type RiskEngineTestSuite struct {
	suite.Suite
	engine *Engine
}

func TestRiskEngineSuite(t *testing.T) {
	suite.Run(t, new(RiskEngineTestSuite))
}

func (suite *RiskEngineTestSuite) SetupTest() {
	suite.engine = NewEngine(0.02, 20, logger.NewNopLogger())
	suite.engine.SetEquity(10_000)
}

// snapshotWithATR builds bars whose constant high-low range makes the
// 14-period ATR exactly rangeWidth.
func snapshotWithATR(n int, price, rangeWidth float64) *types.MarketSnapshot {
	bars := make([]types.Bar, n)
	barTime := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = types.Bar{
			Time:   barTime,
			Open:   price,
			High:   price + rangeWidth/2,
			Low:    price - rangeWidth/2,
			Close:  price,
			Volume: 100,
		}
		barTime = barTime.Add(time.Hour)
	}

	return &types.MarketSnapshot{
		Symbol: "BTCUSDT",
		Time:   barTime,
		Bars:   bars,
		Price:  price,
	}
}

func buySignal(confidence float64) types.CombinedSignal {
	return types.CombinedSignal{
		Action:     types.ActionBuy,
		Confidence: confidence,
	}
}

func (suite *RiskEngineTestSuite) TestApproveBuySizesFromATR() {
	// Equity $10k, risk 2%, ATR $50, price $3000: riskAmount $200, stop
	// distance $75, raw quantity 2.667 at leverage 0.8x, RR 2.0.
	snapshot := snapshotWithATR(30, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.Require().True(approval.Approved())
	params := approval.Parameters.Unwrap()

	suite.InDelta(200.0, params.RiskAmount, 1e-9)
	suite.InDelta(75.0, params.StopDistance, 1e-9)
	suite.InDelta(150.0, params.TargetDistance, 1e-9)
	suite.InDelta(2925.0, params.StopPrice, 1e-9)
	suite.InDelta(3150.0, params.TargetPrice, 1e-9)
	suite.InDelta(2.666, params.Quantity, 1e-9) // floored, not rounded
	suite.InDelta(2.0, params.RiskReward, 1e-9)
	suite.InDelta(2.0, params.RiskPercent, 1e-9)
	suite.Less(params.Leverage, 1.0)
}

func (suite *RiskEngineTestSuite) TestApproveSellMirrorsStops() {
	snapshot := snapshotWithATR(30, 3000, 50)
	signal := types.CombinedSignal{Action: types.ActionSell, Confidence: 0.8}

	approval := suite.engine.ApproveTrade(signal, 3000, snapshot)

	suite.Require().True(approval.Approved())
	params := approval.Parameters.Unwrap()
	suite.InDelta(3075.0, params.StopPrice, 1e-9)
	suite.InDelta(2850.0, params.TargetPrice, 1e-9)
}

func (suite *RiskEngineTestSuite) TestRejectHoldSignal() {
	snapshot := snapshotWithATR(30, 3000, 50)
	signal := types.CombinedSignal{Action: types.ActionHold, Confidence: 1.0}

	approval := suite.engine.ApproveTrade(signal, 3000, snapshot)

	suite.False(approval.Approved())
	suite.Equal("no actionable signal", approval.Reason)
}

func (suite *RiskEngineTestSuite) TestRejectInsufficientBars() {
	snapshot := snapshotWithATR(10, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.False(approval.Approved())
	suite.Contains(approval.Reason, "insufficient data")
}

func (suite *RiskEngineTestSuite) TestRejectZeroEquity() {
	suite.engine.SetEquity(0)
	snapshot := snapshotWithATR(30, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.False(approval.Approved())
	suite.Equal("invalid account balance", approval.Reason)
}

func (suite *RiskEngineTestSuite) TestRejectMaxPositions() {
	positions := make([]types.OpenPosition, MaxOpenPositions)
	for i := range positions {
		positions[i] = types.OpenPosition{
			Symbol: "BTCUSDT", Side: types.PositionSideLong, Size: 0.01, AvgPrice: 50_000,
		}
	}
	suite.engine.UpdatePositions(positions)
	snapshot := snapshotWithATR(30, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.False(approval.Approved())
	suite.Contains(approval.Reason, "maximum positions reached")
}

func (suite *RiskEngineTestSuite) TestRejectLowConfidence() {
	snapshot := snapshotWithATR(30, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.55), 3000, snapshot)

	suite.False(approval.Approved())
	suite.Contains(approval.Reason, "low confidence")
}

func (suite *RiskEngineTestSuite) TestLeverageCappedAndQuantityRecomputed() {
	// A tiny ATR relative to price demands huge size; the leverage clamp
	// caps it and recomputes quantity from the capped notional.
	suite.engine = NewEngine(0.02, 2, logger.NewNopLogger())
	suite.engine.SetEquity(10_000)
	snapshot := snapshotWithATR(30, 3000, 1)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.Require().True(approval.Approved())
	params := approval.Parameters.Unwrap()
	suite.InDelta(2.0, params.Leverage, 1e-9)
	suite.InDelta(20_000.0, params.PositionValue, 1e-9)
	suite.InDelta(6.666, params.Quantity, 1e-9)
}

func (suite *RiskEngineTestSuite) TestRegimeMultiplierScalesRisk() {
	suite.engine.SetRegimeMultiplier(0.5)
	snapshot := snapshotWithATR(30, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.Require().True(approval.Approved())
	params := approval.Parameters.Unwrap()
	suite.InDelta(100.0, params.RiskAmount, 1e-9)
	suite.InDelta(1.333, params.Quantity, 1e-9)
}

func (suite *RiskEngineTestSuite) TestZeroRegimeMultiplierRoundsToZeroQuantity() {
	suite.engine.SetRegimeMultiplier(0)
	snapshot := snapshotWithATR(30, 3000, 50)

	approval := suite.engine.ApproveTrade(buySignal(0.8), 3000, snapshot)

	suite.False(approval.Approved())
	suite.Equal("position size rounds to zero", approval.Reason)
}

func (suite *RiskEngineTestSuite) TestTrailingStopTightensLongOnly() {
	position := types.OpenPosition{
		Symbol:    "BTCUSDT",
		Side:      types.PositionSideLong,
		Size:      1,
		AvgPrice:  3000,
		StopPrice: optional.Some(2950.0),
	}

	// Price moved up: candidate 3200-100=3100, above stop and entry.
	updated := suite.engine.TrailingStop(position, 3200, 50)
	suite.Require().True(updated.IsSome())
	suite.InDelta(3100.0, updated.Unwrap(), 1e-9)

	// Price stalls: candidate 3020-100=2920 is below the current stop.
	suite.True(suite.engine.TrailingStop(position, 3020, 50).IsNone())

	// Candidate above the stop but still below entry: no update.
	position.StopPrice = optional.Some(2900.0)
	suite.True(suite.engine.TrailingStop(position, 3050, 50).IsNone())
}

func (suite *RiskEngineTestSuite) TestTrailingStopTightensShortOnly() {
	position := types.OpenPosition{
		Symbol:    "BTCUSDT",
		Side:      types.PositionSideShort,
		Size:      -1,
		AvgPrice:  3000,
		StopPrice: optional.Some(3050.0),
	}

	updated := suite.engine.TrailingStop(position, 2800, 50)
	suite.Require().True(updated.IsSome())
	suite.InDelta(2900.0, updated.Unwrap(), 1e-9)

	suite.True(suite.engine.TrailingStop(position, 2980, 50).IsNone())
}

func (suite *RiskEngineTestSuite) TestTrailingStopWithNoExistingStop() {
	position := types.OpenPosition{
		Symbol:   "BTCUSDT",
		Side:     types.PositionSideLong,
		Size:     1,
		AvgPrice: 3000,
	}

	// No current stop: any candidate above entry is an improvement.
	updated := suite.engine.TrailingStop(position, 3200, 50)
	suite.Require().True(updated.IsSome())
	suite.InDelta(3100.0, updated.Unwrap(), 1e-9)
}

func (suite *RiskEngineTestSuite) TestEmergencyCloseBoundary() {
	// Exactly 90% exposure is still acceptable.
	suite.engine.UpdatePositions([]types.OpenPosition{
		{Symbol: "BTCUSDT", Side: types.PositionSideLong, Size: 0.18, AvgPrice: 50_000},
	})
	suite.False(suite.engine.ShouldEmergencyClose())

	// Strictly above 90% triggers.
	suite.engine.UpdatePositions([]types.OpenPosition{
		{Symbol: "BTCUSDT", Side: types.PositionSideLong, Size: 0.19, AvgPrice: 50_000},
	})
	suite.True(suite.engine.ShouldEmergencyClose())
}

func (suite *RiskEngineTestSuite) TestEmergencyCloseWithZeroEquity() {
	suite.engine.SetEquity(0)
	suite.False(suite.engine.ShouldEmergencyClose())
}

func (suite *RiskEngineTestSuite) TestOptimalLeverageScalesWithVolatility() {
	suite.InDelta(5.0, suite.engine.OptimalLeverage(120, 3000), 1e-9)  // 4%
	suite.InDelta(7.0, suite.engine.OptimalLeverage(75, 3000), 1e-9)   // 2.5%
	suite.InDelta(10.0, suite.engine.OptimalLeverage(45, 3000), 1e-9)  // 1.5%
	suite.InDelta(20.0, suite.engine.OptimalLeverage(15, 3000), 1e-9)  // 0.5%

	capped := NewEngine(0.02, 3, logger.NewNopLogger())
	suite.InDelta(3.0, capped.OptimalLeverage(120, 3000), 1e-9)
}

func (suite *RiskEngineTestSuite) TestMetricsSnapshot() {
	suite.engine.SetRegimeMultiplier(1.2)
	suite.engine.UpdatePositions([]types.OpenPosition{
		{Symbol: "BTCUSDT", Side: types.PositionSideLong, Size: 0.1, AvgPrice: 50_000},
	})

	metrics := suite.engine.Metrics()

	suite.InDelta(10_000.0, metrics.Equity, 1e-9)
	suite.Equal(1, metrics.OpenPositions)
	suite.InDelta(5000.0, metrics.TotalExposure, 1e-9)
	suite.InDelta(0.024, metrics.EffectiveRisk, 1e-9)
	suite.InDelta(1.2, metrics.RegimeMultiplier, 1e-9)
}
