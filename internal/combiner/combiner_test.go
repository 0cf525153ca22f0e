package combiner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-decision/internal/engine"
	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

type fakeProvider struct {
	factor types.FactorType
	signal types.FactorSignal
}

func (f *fakeProvider) FactorType() types.FactorType {
	return f.factor
}

func (f *fakeProvider) Analyze(_ context.Context, _ *types.MarketSnapshot) types.FactorSignal {
	return f.signal
}

type fakeVeto struct {
	avoid bool
}

func (f *fakeVeto) ShouldAvoidTrading() bool {
	return f.avoid
}

type CombinerTestSuite struct {
	suite.Suite
	veto     *fakeVeto
	snapshot *types.MarketSnapshot
}

func TestCombinerSuite(t *testing.T) {
	suite.Run(t, new(CombinerTestSuite))
}

func (suite *CombinerTestSuite) SetupTest() {
	suite.veto = &fakeVeto{}
	suite.snapshot = &types.MarketSnapshot{
		Symbol: "BTCUSDT",
		Time:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Price:  50_000,
	}
}

func (suite *CombinerTestSuite) newCombiner(providers ...engine.FactorProvider) *Combiner {
	c, err := NewCombiner(DefaultWeights(), providers, suite.veto, 0, logger.NewNopLogger())
	suite.Require().NoError(err)
	return c
}

func factorSignal(factor types.FactorType, bullish, bearish float64) types.FactorSignal {
	return types.FactorSignal{
		Factor:       factor,
		Available:    true,
		BullishScore: bullish,
		BearishScore: bearish,
		Reasons:      []string{"test"},
	}
}

func trendingRegime() types.RegimeClassification {
	return types.RegimeClassification{
		Regime:         types.RegimeTrending,
		Subtype:        "bullish",
		Confidence:     0.85,
		Action:         types.RegimeActionTrendFollow,
		RiskMultiplier: 1.2,
	}
}

func (suite *CombinerTestSuite) TestWeightsMustSumToOne() {
	_, err := NewCombiner(Weights{Technical: 0.5, Regime: 0.5, OrderFlow: 0.5},
		nil, suite.veto, 0, logger.NewNopLogger())

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidWeights))
}

func (suite *CombinerTestSuite) TestRegimeGateShortCircuitsToHold() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 100, 0)},
	)
	regime := types.RegimeClassification{
		Regime:         types.RegimeNewsShock,
		Action:         types.RegimeActionAvoid,
		RiskMultiplier: 0,
		Reason:         "news shock detected",
	}

	signal := c.Combine(context.Background(), suite.snapshot, regime)

	suite.Equal(types.ActionHold, signal.Action)
	suite.Zero(signal.Confidence)
	suite.Contains(signal.Reason, "forbids trading")
}

func (suite *CombinerTestSuite) TestMacroVetoShortCircuitsToHold() {
	suite.veto.avoid = true
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 100, 0)},
	)

	signal := c.Combine(context.Background(), suite.snapshot, trendingRegime())

	suite.Equal(types.ActionHold, signal.Action)
	suite.Contains(signal.Reason, "macro conditions unfavorable")
}

func (suite *CombinerTestSuite) TestUnanimousBullishConsensusBuys() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 80, 0)},
		&fakeProvider{types.FactorOrderFlow, factorSignal(types.FactorOrderFlow, 90, 10)},
		&fakeProvider{types.FactorMacro, factorSignal(types.FactorMacro, 75, 0)},
		&fakeProvider{types.FactorSentiment, factorSignal(types.FactorSentiment, 70, 0)},
	)

	signal := c.Combine(context.Background(), suite.snapshot, trendingRegime())

	// technical 80*0.25=20, order flow 90*0.25=22.5, macro 75*0.15=11.25,
	// sentiment 70*0.15=10.5, trend-follow boost 0.85*100*0.20*0.5=8.5.
	suite.Equal(types.ActionBuy, signal.Action)
	suite.InDelta(72.75, signal.BullishScore, 1e-9)
	suite.InDelta(2.5, signal.BearishScore, 1e-9)
	suite.InDelta(0.7025, signal.RawConfidence, 1e-9)
	// adjusted = min(0.7025*1.2, 1.0)
	suite.InDelta(0.843, signal.Confidence, 1e-9)
	suite.Len(signal.Factors, 5)
}

func (suite *CombinerTestSuite) TestBearishTechnicalReceivesTrendBoost() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 0, 80)},
		&fakeProvider{types.FactorOrderFlow, factorSignal(types.FactorOrderFlow, 0, 90)},
		&fakeProvider{types.FactorMacro, factorSignal(types.FactorMacro, 0, 75)},
		&fakeProvider{types.FactorSentiment, factorSignal(types.FactorSentiment, 0, 70)},
	)

	regime := trendingRegime()
	regime.Subtype = "bearish"

	signal := c.Combine(context.Background(), suite.snapshot, regime)

	// The boost lands on the bearish side, mirroring the bullish case.
	suite.Equal(types.ActionSell, signal.Action)
	suite.InDelta(72.75, signal.BearishScore, 1e-9)
	suite.Zero(signal.BullishScore)
}

func (suite *CombinerTestSuite) TestNoBoostWhenTechnicalHolds() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 40, 40)},
		&fakeProvider{types.FactorOrderFlow, factorSignal(types.FactorOrderFlow, 90, 0)},
	)

	signal := c.Combine(context.Background(), suite.snapshot, trendingRegime())

	// Only technical 40*0.25 on both sides and order flow 90*0.25.
	suite.InDelta(32.5, signal.BullishScore, 1e-9)
	suite.InDelta(10.0, signal.BearishScore, 1e-9)
	suite.Len(signal.Factors, 2)
}

func (suite *CombinerTestSuite) TestUnavailableFactorExcludedWithoutRenormalization() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 80, 0)},
		&fakeProvider{types.FactorOrderFlow, types.Unavailable(types.FactorOrderFlow, "feed down")},
	)

	signal := c.Combine(context.Background(), suite.snapshot, trendingRegime())

	// technical 20 + boost 8.5; the missing factor contributes nothing and
	// the remaining weights are not scaled up.
	suite.InDelta(28.5, signal.BullishScore, 1e-9)
	suite.Len(signal.Factors, 2) // technical + regime boost
}

func (suite *CombinerTestSuite) TestLowConfidenceHolds() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 50, 20)},
	)

	regime := types.RegimeClassification{
		Regime:         types.RegimeUncertain,
		Confidence:     0.5,
		Action:         types.RegimeActionConservative,
		RiskMultiplier: 0.7,
	}

	signal := c.Combine(context.Background(), suite.snapshot, regime)

	// net = 30*0.25 = 7.5, raw 0.075, adjusted 0.0525, far below threshold.
	suite.Equal(types.ActionHold, signal.Action)
	suite.Contains(signal.Reason, "below threshold")
}

func (suite *CombinerTestSuite) TestVolatileRegimeMultiplierDampensConfidence() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 100, 0)},
		&fakeProvider{types.FactorOrderFlow, factorSignal(types.FactorOrderFlow, 100, 0)},
		&fakeProvider{types.FactorMacro, factorSignal(types.FactorMacro, 100, 0)},
		&fakeProvider{types.FactorSentiment, factorSignal(types.FactorSentiment, 100, 0)},
	)

	regime := types.RegimeClassification{
		Regime:         types.RegimeVolatile,
		Confidence:     0.9,
		Action:         types.RegimeActionWidenStop,
		RiskMultiplier: 0.5,
	}

	signal := c.Combine(context.Background(), suite.snapshot, regime)

	// raw = (25+25+15+15)/100 = 0.8; adjusted = 0.4 < 0.65 → hold even on
	// a unanimous bullish read.
	suite.Equal(types.ActionHold, signal.Action)
	suite.InDelta(0.8, signal.RawConfidence, 1e-9)
	suite.InDelta(0.4, signal.Confidence, 1e-9)
}

// slowProvider blocks until its context is cancelled, simulating a hung
// upstream fetch, then degrades to unavailable.
type slowProvider struct {
	factor types.FactorType
}

func (p *slowProvider) FactorType() types.FactorType {
	return p.factor
}

func (p *slowProvider) Analyze(ctx context.Context, _ *types.MarketSnapshot) types.FactorSignal {
	<-ctx.Done()
	return types.Unavailable(p.factor, "timed out")
}

func (suite *CombinerTestSuite) TestZeroTimeoutFallsBackToDefault() {
	c, err := NewCombiner(DefaultWeights(), nil, suite.veto, 0, logger.NewNopLogger())

	suite.Require().NoError(err)
	suite.Equal(DefaultEngineTimeout, c.engineTimeout)
}

func (suite *CombinerTestSuite) TestConfiguredTimeoutIsApplied() {
	c, err := NewCombiner(DefaultWeights(), nil, suite.veto, 3*time.Second, logger.NewNopLogger())

	suite.Require().NoError(err)
	suite.Equal(3*time.Second, c.engineTimeout)
}

func (suite *CombinerTestSuite) TestSlowProviderBoundedByTimeout() {
	c, err := NewCombiner(DefaultWeights(), []engine.FactorProvider{
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 80, 0)},
		&slowProvider{factor: types.FactorOrderFlow},
	}, suite.veto, 20*time.Millisecond, logger.NewNopLogger())
	suite.Require().NoError(err)

	start := time.Now()
	signal := c.Combine(context.Background(), suite.snapshot, trendingRegime())

	suite.Less(time.Since(start), time.Second)
	// The hung order-flow factor contributes nothing; technical 20 + boost 8.5.
	suite.InDelta(28.5, signal.BullishScore, 1e-9)
	suite.Len(signal.Factors, 2)
}

func (suite *CombinerTestSuite) TestConfidenceCappedAtOne() {
	c := suite.newCombiner(
		&fakeProvider{types.FactorTechnical, factorSignal(types.FactorTechnical, 200, 0)},
		&fakeProvider{types.FactorOrderFlow, factorSignal(types.FactorOrderFlow, 200, 0)},
	)

	signal := c.Combine(context.Background(), suite.snapshot, trendingRegime())

	suite.Equal(types.ActionBuy, signal.Action)
	suite.InDelta(1.0, signal.Confidence, 1e-9)
}
