// Package engine contains the factor scoring engines. Each engine reduces
// one class of market evidence (technical indicators, derivatives order
// flow, macro fundamentals, sentiment and on-chain data) to a pair of
// bullish/bearish scores the combiner can weight. Engines never return
// errors from Analyze: a failed fetch degrades to the last good cached
// signal, and total unavailability is reported through the signal itself.
package engine

import (
	"context"

	"github.com/rxtech-lab/argo-decision/internal/types"
)

// FactorProvider is one factor scoring engine. The combiner fans out over
// an ordered collection of providers each decision cycle.
type FactorProvider interface {
	// FactorType identifies the engine for weighting and diagnostics.
	FactorType() types.FactorType
	// Analyze scores the current market snapshot. It must respect ctx
	// cancellation for any remote fetch and must not return an error;
	// unavailability is expressed with Available=false.
	Analyze(ctx context.Context, snapshot *types.MarketSnapshot) types.FactorSignal
}
