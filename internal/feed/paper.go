package feed

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// PaperBroker simulates account state and order execution in memory. It is
// the default executor so the decision loop can run end-to-end without
// exchange credentials, and it backs the end-to-end tests.
type PaperBroker struct {
	mu        sync.Mutex
	equity    float64
	positions []types.OpenPosition
	logger    *logger.Logger
}

func NewPaperBroker(initialEquity float64, l *logger.Logger) *PaperBroker {
	return &PaperBroker{
		equity: initialEquity,
		logger: l,
	}
}

func (b *PaperBroker) AccountState(_ context.Context) (types.AccountState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := make([]types.OpenPosition, len(b.positions))
	copy(positions, b.positions)

	return types.AccountState{
		Equity:    b.equity,
		Positions: positions,
	}, nil
}

// Execute opens a simulated position at the intent's entry price and
// returns the intent ID as the order identifier.
func (b *PaperBroker) Execute(_ context.Context, intent types.OrderIntent) (string, error) {
	if err := intent.Validate(); err != nil {
		return "", err
	}

	side := types.PositionSideLong
	size := intent.Quantity
	if intent.Side == types.OrderSideSell {
		side = types.PositionSideShort
		size = -intent.Quantity
	}

	b.mu.Lock()
	b.positions = append(b.positions, types.OpenPosition{
		Symbol:    intent.Symbol,
		Side:      side,
		Size:      size,
		AvgPrice:  intent.EntryPrice,
		StopPrice: optional.Some(intent.StopPrice),
	})
	b.mu.Unlock()

	b.logger.Info("paper order filled",
		zap.String("order_id", intent.ID),
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("quantity", intent.Quantity),
		zap.Float64("entry", intent.EntryPrice),
	)

	return intent.ID, nil
}

// UpdateStop moves the stored stop of the open position in symbol. The
// trailing-stop pass calls this with already-tightened values, so no
// direction check happens here.
func (b *PaperBroker) UpdateStop(_ context.Context, symbol string, stop float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.positions {
		if b.positions[i].Symbol != symbol {
			continue
		}

		b.positions[i].StopPrice = optional.Some(stop)
		b.logger.Info("paper stop updated",
			zap.String("symbol", symbol),
			zap.Float64("stop", stop),
		)

		return nil
	}

	return errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
}

func (b *PaperBroker) CloseAll(_ context.Context) error {
	b.mu.Lock()
	closed := len(b.positions)
	b.positions = nil
	b.mu.Unlock()

	b.logger.Warn("paper broker closed all positions", zap.Int("count", closed))

	return nil
}
