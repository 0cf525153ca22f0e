package types

import "time"

// DecisionRecord is one row of decision history: the outcome of a single
// cycle, whether or not it produced an order.
type DecisionRecord struct {
	Time       time.Time `json:"time" yaml:"time"`
	Symbol     string    `json:"symbol" yaml:"symbol"`
	Action     Action    `json:"action" yaml:"action"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	NetScore   float64   `json:"net_score" yaml:"net_score"`
	Regime     Regime    `json:"regime" yaml:"regime"`
	// Approved is true when the risk engine sized a position and an order
	// intent was emitted.
	Approved bool   `json:"approved" yaml:"approved"`
	Reason   string `json:"reason" yaml:"reason"`
}
