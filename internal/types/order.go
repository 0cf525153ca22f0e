package types

import (
	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// OrderSide is the direction of an order intent.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderIntent is the risk-checked order the decision core hands to the
// execution collaborator. The core does not retry failed placement; a
// failure is surfaced and the next cycle re-evaluates from scratch.
type OrderIntent struct {
	ID          string    `json:"id" yaml:"id" validate:"required,uuid"`
	Symbol      string    `json:"symbol" yaml:"symbol" validate:"required"`
	Side        OrderSide `json:"side" yaml:"side" validate:"required,oneof=BUY SELL"`
	Quantity    float64   `json:"quantity" yaml:"quantity" validate:"required,gt=0"`
	EntryPrice  float64   `json:"entry_price" yaml:"entry_price" validate:"required,gt=0"`
	StopPrice   float64   `json:"stop_price" yaml:"stop_price" validate:"required,gt=0"`
	TargetPrice float64   `json:"target_price" yaml:"target_price" validate:"required,gt=0"`
	Leverage    float64   `json:"leverage" yaml:"leverage" validate:"gte=0"`
	Reason      string    `json:"reason" yaml:"reason" validate:"required"`
}

// Validate validates the OrderIntent struct.
func (o *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderIntent, "invalid order intent", err)
	}

	return nil
}
