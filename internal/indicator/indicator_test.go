package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type MovingAverageTestSuite struct {
	suite.Suite
}

func TestMovingAverageSuite(t *testing.T) {
	suite.Run(t, new(MovingAverageTestSuite))
}

func (suite *MovingAverageTestSuite) TestSMAInsufficientData() {
	tests := []struct {
		name   string
		series []float64
		period int
	}{
		{name: "empty series", series: nil, period: 5},
		{name: "one short", series: []float64{1, 2, 3, 4}, period: 5},
		{name: "zero period", series: []float64{1, 2, 3}, period: 0},
		{name: "negative period", series: []float64{1, 2, 3}, period: -1},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.True(SMA(tc.series, tc.period).IsNone())
		})
	}
}

func (suite *MovingAverageTestSuite) TestSMAKnownValues() {
	result := SMA([]float64{1, 2, 3, 4, 5}, 5)
	suite.True(result.IsSome())
	suite.InDelta(3.0, result.Unwrap(), 1e-9)

	// Only the last period values count.
	result = SMA([]float64{100, 1, 2, 3}, 3)
	suite.True(result.IsSome())
	suite.InDelta(2.0, result.Unwrap(), 1e-9)
}

func (suite *MovingAverageTestSuite) TestEMAInsufficientData() {
	suite.True(EMA(nil, 5).IsNone())
	suite.True(EMA([]float64{1, 2, 3, 4}, 5).IsNone())
	suite.True(EMA([]float64{1, 2, 3}, 0).IsNone())
}

func (suite *MovingAverageTestSuite) TestEMASeedsFromSMA() {
	// With exactly period values the EMA is just the seed SMA.
	result := EMA([]float64{2, 4, 6, 8}, 4)
	suite.True(result.IsSome())
	suite.InDelta(5.0, result.Unwrap(), 1e-9)
}

func (suite *MovingAverageTestSuite) TestEMARecursion() {
	// Seed SMA of [1,2,3] = 2; multiplier = 2/(3+1) = 0.5.
	// Next value 4: ema = (4-2)*0.5 + 2 = 3.
	// Next value 5: ema = (5-3)*0.5 + 3 = 4.
	result := EMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.True(result.IsSome())
	suite.InDelta(4.0, result.Unwrap(), 1e-9)
}

func (suite *MovingAverageTestSuite) TestEMATracksTrend() {
	series := make([]float64, 50)
	for i := range series {
		series[i] = 100 + float64(i)
	}

	shortEMA := EMA(series, 9).Unwrap()
	longEMA := EMA(series, 21).Unwrap()

	// In a steady uptrend the shorter EMA sits above the longer one.
	suite.Greater(shortEMA, longEMA)
}
