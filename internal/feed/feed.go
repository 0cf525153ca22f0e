// Package feed holds the external collaborators of the decision loop:
// market data sources, account state, order execution and the remote
// fetchers backing the factor engines. Implementations are thin; all
// scoring happens in internal/engine.
package feed

import (
	"context"

	"github.com/rxtech-lab/argo-decision/internal/types"
)

// MarketDataSource supplies the per-cycle market snapshot.
type MarketDataSource interface {
	Snapshot(ctx context.Context) (*types.MarketSnapshot, error)
}

// AccountSource supplies equity and open positions at the start of a cycle.
type AccountSource interface {
	AccountState(ctx context.Context) (types.AccountState, error)
}

// OrderExecutor places approved order intents. Execute returns the
// exchange-assigned order identifier. Failed placement is surfaced to the
// caller and retried naturally on the next cycle.
type OrderExecutor interface {
	Execute(ctx context.Context, intent types.OrderIntent) (string, error)
	// UpdateStop amends the stop price of the open position in symbol.
	UpdateStop(ctx context.Context, symbol string, stop float64) error
	// CloseAll flattens every open position; used by the emergency brake.
	CloseAll(ctx context.Context) error
}
