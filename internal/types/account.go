package types

import (
	"math"

	"github.com/moznion/go-optional"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// OpenPosition is one open position as reported by the account collaborator.
type OpenPosition struct {
	Symbol        string       `json:"symbol" yaml:"symbol"`
	Side          PositionSide `json:"side" yaml:"side"`
	Size          float64      `json:"size" yaml:"size"`
	AvgPrice      float64      `json:"avg_price" yaml:"avg_price"`
	UnrealizedPnL float64      `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	// StopPrice is the currently active stop for the position, if any.
	StopPrice optional.Option[float64] `json:"stop_price,omitempty" yaml:"stop_price,omitempty"`
}

// Notional returns the absolute notional value of the position.
func (p OpenPosition) Notional() float64 {
	return math.Abs(p.Size * p.AvgPrice)
}

// AccountState is the externally supplied account snapshot, refreshed at the
// start of each decision cycle and read-only thereafter within the cycle.
type AccountState struct {
	Equity    float64        `json:"equity" yaml:"equity"`
	Positions []OpenPosition `json:"positions" yaml:"positions"`
}

// TotalExposure sums the notional value of every open position.
func (a AccountState) TotalExposure() float64 {
	total := 0.0
	for _, p := range a.Positions {
		total += p.Notional()
	}

	return total
}
