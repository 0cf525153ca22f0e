package types

import "time"

// MinimumBars is the minimum number of historical bars required before any
// analysis is attempted. Snapshots with fewer bars produce a Hold decision.
const MinimumBars = 50

// Bar is a single OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// BookLevel is a single price level of the order book.
type BookLevel struct {
	Price    float64 `json:"price" yaml:"price"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
}

// OrderBook holds the top-N levels of both sides of the book.
type OrderBook struct {
	Bids []BookLevel `json:"bids" yaml:"bids"`
	Asks []BookLevel `json:"asks" yaml:"asks"`
}

// MarketSnapshot is the full market state for one instrument at one point in
// time. It is owned by the data collaborator and replaced wholesale each
// cycle; the decision core treats it as read-only.
type MarketSnapshot struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Time      time.Time `json:"time" yaml:"time"`
	Bars      []Bar     `json:"bars" yaml:"bars"` // ordered, newest last
	Price     float64   `json:"price" yaml:"price"`
	Volume24h float64   `json:"volume_24h" yaml:"volume_24h"`
	Book      OrderBook `json:"book" yaml:"book"`
}

// HasMinimumHistory reports whether the snapshot carries enough bars for
// analysis.
func (s *MarketSnapshot) HasMinimumHistory() bool {
	return len(s.Bars) >= MinimumBars
}

// Closes returns the close prices of all bars, oldest first.
func (s *MarketSnapshot) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}

	return out
}

// Highs returns the high prices of all bars, oldest first.
func (s *MarketSnapshot) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}

	return out
}

// Lows returns the low prices of all bars, oldest first.
func (s *MarketSnapshot) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}

	return out
}

// Volumes returns the volumes of all bars, oldest first.
func (s *MarketSnapshot) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}

	return out
}
