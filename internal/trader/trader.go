// Package trader runs the decision loop: one cycle per tick gathers
// account and market state, classifies the regime, fuses the factor
// signals and routes approved trades to the executor.
package trader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-decision/internal/combiner"
	"github.com/rxtech-lab/argo-decision/internal/feed"
	"github.com/rxtech-lab/argo-decision/internal/indicator"
	"github.com/rxtech-lab/argo-decision/internal/logger"
	"github.com/rxtech-lab/argo-decision/internal/regime"
	"github.com/rxtech-lab/argo-decision/internal/risk"
	"github.com/rxtech-lab/argo-decision/internal/types"
)

// Recorder persists one decision row per cycle. Recording failures are
// logged and never fail the cycle.
type Recorder interface {
	Record(ctx context.Context, record types.DecisionRecord) error
}

// BiasSource reports a position-sizing multiplier derived from a factor
// engine's current bias. Implemented by the macro and sentiment engines.
type BiasSource interface {
	BiasMultiplier() float64
}

// Trader owns one instrument's decision loop.
type Trader struct {
	config    Config
	market    feed.MarketDataSource
	account   feed.AccountSource
	executor  feed.OrderExecutor
	detector  *regime.Detector
	combiner  *combiner.Combiner
	risk      *risk.Engine
	macro     BiasSource
	sentiment BiasSource
	recorder  Recorder
	logger    *logger.Logger

	busy atomic.Bool

	mu         sync.RWMutex
	lastSignal optional.Option[types.CombinedSignal]
}

// Dependencies bundles the collaborators a Trader needs. Recorder, Macro
// and Sentiment are optional.
type Dependencies struct {
	Market    feed.MarketDataSource
	Account   feed.AccountSource
	Executor  feed.OrderExecutor
	Detector  *regime.Detector
	Combiner  *combiner.Combiner
	Risk      *risk.Engine
	Macro     BiasSource
	Sentiment BiasSource
	Recorder  Recorder
}

func New(config Config, deps Dependencies, l *logger.Logger) *Trader {
	return &Trader{
		config:    config,
		market:    deps.Market,
		account:   deps.Account,
		executor:  deps.Executor,
		detector:  deps.Detector,
		combiner:  deps.Combiner,
		risk:      deps.Risk,
		macro:     deps.Macro,
		sentiment: deps.Sentiment,
		recorder:  deps.Recorder,
		logger:    l,
	}
}

// Run executes cycles on the configured interval until the context is
// cancelled. An in-flight cycle is allowed to finish.
func (t *Trader) Run(ctx context.Context) error {
	t.logger.Info("decision loop started",
		zap.String("symbol", t.config.Symbol),
		zap.Duration("interval", t.config.DecisionInterval()),
	)

	ticker := time.NewTicker(t.config.DecisionInterval())
	defer ticker.Stop()

	t.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("decision loop stopped")
			return nil
		case <-ticker.C:
			t.RunCycle(ctx)
		}
	}
}

// RunCycle executes a single decision cycle. At most one cycle runs at a
// time; a tick arriving while a cycle is in flight is dropped.
func (t *Trader) RunCycle(ctx context.Context) {
	if !t.busy.CompareAndSwap(false, true) {
		t.logger.Warn("cycle still in flight, skipping tick")
		return
	}
	defer t.busy.Store(false)

	account, err := t.account.AccountState(ctx)
	if err != nil {
		t.logger.Error("account state unavailable, skipping cycle", zap.Error(err))
		return
	}

	t.risk.SetEquity(account.Equity)
	t.risk.UpdatePositions(account.Positions)

	// The emergency check supersedes everything else in the cycle.
	if t.risk.ShouldEmergencyClose() {
		if err := t.executor.CloseAll(ctx); err != nil {
			t.logger.Error("emergency close failed", zap.Error(err))
		}

		t.record(ctx, types.DecisionRecord{
			Time:   time.Now(),
			Symbol: t.config.Symbol,
			Action: types.ActionHold,
			Reason: "emergency close: exposure exceeds equity limit",
		})

		return
	}

	snapshot, err := t.market.Snapshot(ctx)
	if err != nil {
		t.logger.Error("market snapshot unavailable, skipping cycle", zap.Error(err))
		return
	}

	if !snapshot.HasMinimumHistory() {
		t.record(ctx, types.DecisionRecord{
			Time:   snapshot.Time,
			Symbol: t.config.Symbol,
			Action: types.ActionHold,
			Regime: types.RegimeUnknown,
			Reason: "insufficient data",
		})

		return
	}

	classification := t.detector.Classify(snapshot)
	t.risk.SetRegimeMultiplier(t.combinedMultiplier(classification))

	signal := t.combiner.Combine(ctx, snapshot, classification)
	t.setLastSignal(signal)

	t.updateTrailingStops(ctx, account.Positions, snapshot)

	if signal.Action == types.ActionHold {
		t.record(ctx, decisionFromSignal(t.config.Symbol, signal, false, signal.Reason))
		return
	}

	approval := t.risk.ApproveTrade(signal, snapshot.Price, snapshot)
	if !approval.Approved() {
		t.logger.Info("trade rejected", zap.String("reason", approval.Reason))
		t.record(ctx, decisionFromSignal(t.config.Symbol, signal, false, approval.Reason))

		return
	}

	params := approval.Parameters.Unwrap()
	intent := types.OrderIntent{
		ID:          uuid.NewString(),
		Symbol:      t.config.Symbol,
		Side:        sideForAction(signal.Action),
		Quantity:    params.Quantity,
		EntryPrice:  params.EntryPrice,
		StopPrice:   params.StopPrice,
		TargetPrice: params.TargetPrice,
		Leverage:    params.Leverage,
		Reason:      signal.Reason,
	}

	orderID, err := t.executor.Execute(ctx, intent)
	if err != nil {
		// Not retried here; the next cycle re-evaluates from scratch.
		t.logger.Error("order execution failed", zap.Error(err))
		t.record(ctx, decisionFromSignal(t.config.Symbol, signal, false, "order execution failed: "+err.Error()))

		return
	}

	t.logger.Info("order placed",
		zap.String("order_id", orderID),
		zap.String("side", string(intent.Side)),
		zap.Float64("quantity", intent.Quantity),
		zap.Float64("stop", intent.StopPrice),
		zap.Float64("target", intent.TargetPrice),
	)

	t.record(ctx, decisionFromSignal(t.config.Symbol, signal, true, signal.Reason))
}

// LastSignal returns the most recent combined signal, if any cycle has
// completed the fusion stage.
func (t *Trader) LastSignal() optional.Option[types.CombinedSignal] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastSignal
}

func (t *Trader) setLastSignal(signal types.CombinedSignal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSignal = optional.Some(signal)
}

// combinedMultiplier averages the regime multiplier with the macro and
// sentiment biases so a hostile backdrop shrinks position sizes even when
// the regime itself is benign.
func (t *Trader) combinedMultiplier(classification types.RegimeClassification) float64 {
	parts := classification.RiskMultiplier
	count := 1.0

	if t.macro != nil {
		parts += t.macro.BiasMultiplier()
		count++
	}

	if t.sentiment != nil {
		parts += t.sentiment.BiasMultiplier()
		count++
	}

	return parts / count
}

// updateTrailingStops walks the open positions and tightens stops that
// lag the price by more than the trail distance. Amendments go through
// the executor so the broker's stored stop actually moves.
func (t *Trader) updateTrailingStops(ctx context.Context, positions []types.OpenPosition, snapshot *types.MarketSnapshot) {
	if len(positions) == 0 {
		return
	}

	atrValue := indicator.ATR(snapshot.Highs(), snapshot.Lows(), snapshot.Closes(), indicator.DefaultATRPeriod)
	if atrValue.IsNone() {
		return
	}
	atr := atrValue.Unwrap()

	for _, position := range positions {
		if position.Symbol != t.config.Symbol {
			continue
		}

		stop := t.risk.TrailingStop(position, snapshot.Price, atr)
		if stop.IsNone() {
			continue
		}

		if err := t.executor.UpdateStop(ctx, position.Symbol, stop.Unwrap()); err != nil {
			t.logger.Error("failed to update trailing stop", zap.Error(err))
			continue
		}

		t.logger.Info("trailing stop tightened",
			zap.String("symbol", position.Symbol),
			zap.Float64("stop", stop.Unwrap()),
		)
	}
}

func (t *Trader) record(ctx context.Context, record types.DecisionRecord) {
	if t.recorder == nil {
		return
	}

	if err := t.recorder.Record(ctx, record); err != nil {
		t.logger.Warn("failed to record decision", zap.Error(err))
	}
}

func decisionFromSignal(symbol string, signal types.CombinedSignal, approved bool, reason string) types.DecisionRecord {
	return types.DecisionRecord{
		Time:       signal.Time,
		Symbol:     symbol,
		Action:     signal.Action,
		Confidence: signal.Confidence,
		NetScore:   signal.NetScore,
		Regime:     signal.Regime.Regime,
		Approved:   approved,
		Reason:     reason,
	}
}

func sideForAction(action types.Action) types.OrderSide {
	if action == types.ActionSell {
		return types.OrderSideSell
	}

	return types.OrderSideBuy
}
