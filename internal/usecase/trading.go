package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

// PriceSource supplies the current price for an asset id or stream symbol.
type PriceSource interface {
	Price(ctx context.Context, key string) (float64, error)
}

// TradingService orchestrates the two engines: it resolves prices for
// market orders, routes every fill and close into the journal, and snapshots
// the whole simulation through the state store. Engine state is only touched
// through the engines themselves.
type TradingService struct {
	account     *Account
	ledger      *SpotLedger
	futures     *FuturesEngine
	journal     *JournalProcessor
	state       domrepo.StateStore
	prices      PriceSource
	metrics     domrepo.Metrics
	fundingRate float64
	now         func() time.Time
}

// TradingOption configures a TradingService.
type TradingOption func(*TradingService)

// WithTradingClock overrides the snapshot clock.
func WithTradingClock(now func() time.Time) TradingOption {
	return func(s *TradingService) { s.now = now }
}

// WithFundingRate overrides the per-sweep funding rate.
func WithFundingRate(rate float64) TradingOption {
	return func(s *TradingService) { s.fundingRate = rate }
}

// NewTradingService creates a new TradingService instance.
func NewTradingService(
	account *Account,
	ledger *SpotLedger,
	futures *FuturesEngine,
	journal *JournalProcessor,
	state domrepo.StateStore,
	prices PriceSource,
	metrics domrepo.Metrics,
	opts ...TradingOption,
) *TradingService {
	s := &TradingService{
		account:     account,
		ledger:      ledger,
		futures:     futures,
		journal:     journal,
		state:       state,
		prices:      prices,
		metrics:     metrics,
		fundingRate: DefaultFundingRate,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup resolves the current price, or reports a miss. Feed failures are
// counted, never propagated as errors.
func (s *TradingService) lookup(ctx context.Context, key string) (float64, bool) {
	price, err := s.prices.Price(ctx, key)
	if err != nil || price <= 0 {
		s.metrics.RecordError("price_lookup")
		return 0, false
	}
	return price, true
}

// ValidateSpot checks a spot order at the current market price.
func (s *TradingService) ValidateSpot(ctx context.Context, order models.SpotOrder) models.TradeValidationResult {
	price, ok := s.lookup(ctx, order.Asset)
	if !ok {
		return models.TradeValidationResult{Error: fmt.Sprintf("no price available for %s", order.Asset)}
	}
	return s.ledger.ValidateTrade(order, price)
}

// ExecuteSpot fills a spot order at the current market price and journals
// the resulting trade.
func (s *TradingService) ExecuteSpot(ctx context.Context, order models.SpotOrder) (*models.Trade, models.TradeValidationResult) {
	price, ok := s.lookup(ctx, order.Asset)
	if !ok {
		return nil, models.TradeValidationResult{Error: fmt.Sprintf("no price available for %s", order.Asset)}
	}
	trade, res := s.ledger.ExecuteTrade(order, price)
	if trade != nil {
		s.metrics.RecordTrade(string(trade.Type))
		s.journalTrade(ctx, trade)
	}
	return trade, res
}

// ValidateFutures checks a futures order, filling the entry from the
// current market price when the order does not pin one.
func (s *TradingService) ValidateFutures(ctx context.Context, order models.FuturesOrder) models.FuturesValidationResult {
	if order.EntryPrice <= 0 {
		price, ok := s.lookup(ctx, order.Symbol)
		if !ok {
			return models.FuturesValidationResult{Error: fmt.Sprintf("no price available for %s", order.Symbol)}
		}
		order.EntryPrice = price
	}
	return s.futures.Validate(order)
}

// OpenFutures opens a position at the current market price and journals it.
func (s *TradingService) OpenFutures(ctx context.Context, order models.FuturesOrder) (*models.FuturesPosition, models.FuturesValidationResult) {
	if order.EntryPrice <= 0 {
		price, ok := s.lookup(ctx, order.Symbol)
		if !ok {
			return nil, models.FuturesValidationResult{Error: fmt.Sprintf("no price available for %s", order.Symbol)}
		}
		order.EntryPrice = price
	}
	pos, res := s.futures.Open(order)
	if pos != nil {
		s.metrics.RecordPositionOpen(string(pos.Side))
		s.journalPosition(ctx, pos)
	}
	return pos, res
}

// CloseFutures manually closes a position at the current market price,
// falling back to the last mark when the feed has no fresh price.
func (s *TradingService) CloseFutures(ctx context.Context, positionID string) (*models.FuturesPosition, error) {
	pos, found := s.futures.Position(positionID)
	if !found {
		return nil, fmt.Errorf("close position %s: not found", positionID)
	}
	price, ok := s.lookup(ctx, pos.Symbol)
	if !ok {
		price = pos.CurrentPrice
	}
	closed, err := s.futures.Close(positionID, price, models.CloseManual)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPositionClose(string(closed.CloseReason))
	s.journalPosition(ctx, closed)
	return closed, nil
}

// MarkPrice feeds one price observation to both engines: spot revaluation
// by asset id, futures mark-to-market by symbol. Positions closed by a
// trigger are journaled here.
func (s *TradingService) MarkPrice(ctx context.Context, assetID, symbol string, price float64) {
	if price <= 0 {
		return
	}
	s.metrics.RecordLastPrice(symbol, price)
	if assetID != "" {
		s.ledger.UpdatePrices(map[string]float64{assetID: price})
	}
	for _, p := range s.futures.MarkToMarket(symbol, price) {
		s.metrics.RecordPositionClose(string(p.CloseReason))
		s.journalPosition(ctx, p)
	}
}

// FundingSweep accrues funding on open positions. Scheduled every 8h.
func (s *TradingService) FundingSweep(ctx context.Context) int {
	return s.futures.ApplyFunding(s.fundingRate)
}

// Portfolio returns the spot portfolio view.
func (s *TradingService) Portfolio() models.Portfolio {
	return s.ledger.Portfolio()
}

// Trades returns the most recent trades, oldest first.
func (s *TradingService) Trades(limit int) []models.Trade {
	return s.ledger.Trades(limit)
}

// TradeCount reports the total number of recorded trades.
func (s *TradingService) TradeCount() int {
	return s.ledger.TradeCount()
}

// Positions returns position copies, optionally filtered by status.
func (s *TradingService) Positions(status models.PositionStatus) []*models.FuturesPosition {
	all := s.futures.Positions()
	if status == "" {
		return all
	}
	var out []*models.FuturesPosition
	for _, p := range all {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// SaveState snapshots the simulation into the state store.
func (s *TradingService) SaveState(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	snap := &models.SimState{
		InitialBalance: s.account.InitialBalance(),
		Balance:        s.account.Balance(),
		Trades:         s.ledger.Trades(0),
		SavedAt:        s.now(),
	}
	for _, p := range s.futures.Positions() {
		snap.Positions = append(snap.Positions, *p)
	}
	if err := s.state.Save(ctx, snap); err != nil {
		s.metrics.RecordError("state_save")
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// RestoreState loads the last snapshot, replaying its trades to rebuild
// holdings. A missing snapshot is a fresh start, not an error.
func (s *TradingService) RestoreState(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	snap, err := s.state.Load(ctx)
	if err != nil {
		s.metrics.RecordError("state_load")
		return fmt.Errorf("load state: %w", err)
	}
	if snap == nil {
		return nil
	}
	s.account.Reset(snap.InitialBalance, snap.Balance)
	s.ledger.Restore(snap.Trades)
	s.futures.Restore(snap.Positions)
	return nil
}

// Close flushes the journal backend.
func (s *TradingService) Close() {
	if s.journal != nil {
		s.journal.Close()
	}
}

// journal failures are counted inside the processor, not fatal to trading.
func (s *TradingService) journalTrade(ctx context.Context, t *models.Trade) {
	_ = s.journal.Process(ctx, &models.JournalEntry{
		Kind:  models.JournalTrade,
		At:    s.now(),
		Trade: t,
	})
}

func (s *TradingService) journalPosition(ctx context.Context, p *models.FuturesPosition) {
	_ = s.journal.Process(ctx, &models.JournalEntry{
		Kind:     models.JournalPosition,
		At:       s.now(),
		Position: p,
	})
}
