package usecase

import (
	"fmt"
	"sync"
	"time"

	"CoinSim/internal/domain/models"
	"CoinSim/pkg/id"
)

// SpotFeeRate is charged on gross value on both sides of a spot trade.
const SpotFeeRate = 0.001

// fullExitEpsilon removes dust holdings after a near-complete sell.
const fullExitEpsilon = 1e-8

// SpotLedger owns the holdings map and the append-only trade journal behind
// one mutex. Holdings are always re-derivable by replaying the journal.
type SpotLedger struct {
	mu       sync.Mutex
	account  *Account
	ids      id.Generator
	now      func() time.Time
	holdings map[string]*models.Holding
	trades   []*models.Trade
}

// SpotOption configures a SpotLedger.
type SpotOption func(*SpotLedger)

// WithSpotClock overrides the ledger clock.
func WithSpotClock(now func() time.Time) SpotOption {
	return func(l *SpotLedger) { l.now = now }
}

// NewSpotLedger creates a ledger trading against the shared account.
func NewSpotLedger(account *Account, ids id.Generator, opts ...SpotOption) *SpotLedger {
	l := &SpotLedger{
		account:  account,
		ids:      ids,
		now:      time.Now,
		holdings: make(map[string]*models.Holding),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ValidateTrade checks an order against the balance and holdings without
// executing it. Problems with user input come back as a structured result,
// never as an error.
func (l *SpotLedger) ValidateTrade(order models.SpotOrder, price float64) models.TradeValidationResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.validate(order, price)
}

func (l *SpotLedger) validate(order models.SpotOrder, price float64) models.TradeValidationResult {
	var res models.TradeValidationResult
	if order.Quantity <= 0 {
		res.Error = "quantity must be positive"
		return res
	}
	if price <= 0 {
		res.Error = fmt.Sprintf("no price available for %s", order.Asset)
		return res
	}
	switch order.Type {
	case models.TradeBuy:
		cost := order.Quantity * price * (1 + SpotFeeRate)
		balance := l.account.Balance()
		if cost > balance {
			res.Error = fmt.Sprintf("insufficient balance: need %.2f, have %.2f", cost, balance)
			return res
		}
		res.Valid = true
		if cost > balance*halfBalanceRatio {
			res.Warnings = append(res.Warnings, "trade uses more than half the available balance")
		}
	case models.TradeSell:
		h, ok := l.holdings[order.Asset]
		if !ok {
			res.Error = fmt.Sprintf("no holding in %s", order.Asset)
			return res
		}
		if order.Quantity > h.Quantity {
			res.Error = fmt.Sprintf("cannot sell %.8f %s, only %.8f held",
				order.Quantity, order.Asset, h.Quantity)
			return res
		}
		res.Valid = true
	default:
		res.Error = fmt.Sprintf("unknown trade type %q", order.Type)
	}
	return res
}

// ExecuteTrade validates the order, moves cash, folds the trade into the
// holdings, and appends the journal row. The returned trade is a copy; the
// validation verdict is returned either way.
func (l *SpotLedger) ExecuteTrade(order models.SpotOrder, price float64) (*models.Trade, models.TradeValidationResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := l.validate(order, price)
	if !res.Valid {
		return nil, res
	}

	gross := order.Quantity * price
	fee := gross * SpotFeeRate
	t := &models.Trade{
		ID:         l.ids.NewID(),
		Asset:      order.Asset,
		Symbol:     order.Symbol,
		Type:       order.Type,
		Quantity:   order.Quantity,
		Price:      price,
		Total:      gross,
		Fee:        fee,
		ExecutedAt: l.now(),
	}
	switch order.Type {
	case models.TradeBuy:
		t.NetTotal = gross + fee
		if !l.account.Debit(t.NetTotal) {
			res.Valid = false
			res.Error = fmt.Sprintf("insufficient balance: need %.2f, have %.2f",
				t.NetTotal, l.account.Balance())
			return nil, res
		}
	case models.TradeSell:
		t.NetTotal = gross - fee
		l.account.Credit(t.NetTotal)
	}

	l.apply(t)
	l.trades = append(l.trades, t)
	c := *t
	return &c, res
}

// apply folds one trade into the holdings map. A buy moves the average
// price toward the fill; a sell removes invested capital proportionally and
// never touches the average. Fees stay out of TotalInvested. Lock must be
// held.
func (l *SpotLedger) apply(t *models.Trade) {
	switch t.Type {
	case models.TradeBuy:
		h, ok := l.holdings[t.Asset]
		if !ok {
			h = &models.Holding{Asset: t.Asset, Symbol: t.Symbol}
			l.holdings[t.Asset] = h
		}
		h.Quantity += t.Quantity
		h.TotalInvested += t.Total
		h.AverageBuyPrice = h.TotalInvested / h.Quantity
		refreshHolding(h, t.Price)
	case models.TradeSell:
		h, ok := l.holdings[t.Asset]
		if !ok {
			return
		}
		removed := h.TotalInvested * (t.Quantity / h.Quantity)
		h.Quantity -= t.Quantity
		h.TotalInvested -= removed
		if h.Quantity <= fullExitEpsilon {
			delete(l.holdings, t.Asset)
			return
		}
		refreshHolding(h, t.Price)
	}
}

// UpdatePrices revalues holdings with the latest prices, keyed by asset id.
// Assets missing from the map keep their previous valuation.
func (l *SpotLedger) UpdatePrices(prices map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for asset, h := range l.holdings {
		if price, ok := prices[asset]; ok && price > 0 {
			refreshHolding(h, price)
		}
	}
}

// Portfolio returns the balance, holding copies, and derived totals.
func (l *SpotLedger) Portfolio() models.Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := models.Portfolio{
		Balance:  l.account.Balance(),
		Holdings: make(map[string]models.Holding, len(l.holdings)),
	}
	for asset, h := range l.holdings {
		p.Holdings[asset] = *h
		p.TotalInvested += h.TotalInvested
		p.TotalValue += h.CurrentValue
		p.TotalPnL += h.CurrentValue - h.TotalInvested
	}
	p.TotalValue += p.Balance
	if p.TotalInvested > 0 {
		p.TotalPnLPct = p.TotalPnL / p.TotalInvested * 100
	}
	return p
}

// Holding returns a copy of the holding for the asset.
func (l *SpotLedger) Holding(asset string) (models.Holding, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holdings[asset]
	if !ok {
		return models.Holding{}, false
	}
	return *h, true
}

// Trades returns copies of the journal rows, oldest first. A positive limit
// keeps only the most recent rows.
func (l *SpotLedger) Trades(limit int) []models.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := l.trades
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	out := make([]models.Trade, 0, len(rows))
	for _, t := range rows {
		out = append(out, *t)
	}
	return out
}

// TradeCount reports how many trades the ledger has recorded.
func (l *SpotLedger) TradeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trades)
}

// Restore rebuilds holdings by replaying the trade list. Trades are the
// source of truth; the account balance is restored separately from the
// snapshot.
func (l *SpotLedger) Restore(trades []models.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings = make(map[string]*models.Holding)
	l.trades = make([]*models.Trade, 0, len(trades))
	for i := range trades {
		t := trades[i]
		l.trades = append(l.trades, &t)
		l.apply(&t)
	}
}

func refreshHolding(h *models.Holding, price float64) {
	h.CurrentPrice = price
	h.CurrentValue = h.Quantity * price
	h.PnL = h.CurrentValue - h.TotalInvested
	if h.TotalInvested > 0 {
		h.PnLPct = h.PnL / h.TotalInvested * 100
	} else {
		h.PnLPct = 0
	}
}
