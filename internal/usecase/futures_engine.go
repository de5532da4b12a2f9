package usecase

import (
	"fmt"
	"sync"
	"time"

	"CoinSim/internal/domain/models"
	"CoinSim/pkg/id"
)

// Futures trading constants. Fees are charged on notional (margin times
// leverage) at open and close; a liquidation carries no close fee.
const (
	FuturesFeeRate        = 0.0005
	MaintenanceMarginRate = 0.01
	DefaultFundingRate    = 0.0001
	MinMargin             = 10.0
	MinLeverage           = 1
	MaxLeverage           = 100
)

// highLeverage is where Validate starts warning about liquidation distance.
const highLeverage = 50

// halfBalanceRatio flags orders locking more than this share of cash.
const halfBalanceRatio = 0.5

// FuturesEngine owns every leveraged position in the simulation. All state
// sits behind one mutex; price ticks, user orders, and the funding sweep
// serialize through it. Terminal positions stay in the list as history.
type FuturesEngine struct {
	mu        sync.Mutex
	account   *Account
	ids       id.Generator
	now       func() time.Time
	positions []*models.FuturesPosition
}

// FuturesOption configures a FuturesEngine.
type FuturesOption func(*FuturesEngine)

// WithFuturesClock overrides the engine clock.
func WithFuturesClock(now func() time.Time) FuturesOption {
	return func(e *FuturesEngine) { e.now = now }
}

// NewFuturesEngine creates an engine trading against the shared account.
func NewFuturesEngine(account *Account, ids id.Generator, opts ...FuturesOption) *FuturesEngine {
	e := &FuturesEngine{
		account: account,
		ids:     ids,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LiquidationPrice is the level where a position is force closed.
// LONG entry*(1 - 1/L + 0.01), SHORT entry*(1 + 1/L - 0.01).
func LiquidationPrice(side models.PositionSide, entry float64, leverage int) float64 {
	l := float64(leverage)
	if side == models.SideLong {
		return entry * (1 - 1/l + MaintenanceMarginRate)
	}
	return entry * (1 + 1/l - MaintenanceMarginRate)
}

// EvaluateTriggers reports which exit rule the price hits, with the level
// the position fills at. Liquidation wins over stop loss, stop loss over
// take profit; at most one trigger fires per tick.
func EvaluateTriggers(p *models.FuturesPosition, price float64) (models.CloseReason, float64, bool) {
	if p.Side == models.SideLong {
		switch {
		case price <= p.LiquidationPrice:
			return models.CloseLiquidation, p.LiquidationPrice, true
		case p.StopLoss > 0 && price <= p.StopLoss:
			return models.CloseStopLoss, p.StopLoss, true
		case p.TakeProfit > 0 && price >= p.TakeProfit:
			return models.CloseTakeProfit, p.TakeProfit, true
		}
		return "", 0, false
	}
	switch {
	case price >= p.LiquidationPrice:
		return models.CloseLiquidation, p.LiquidationPrice, true
	case p.StopLoss > 0 && price >= p.StopLoss:
		return models.CloseStopLoss, p.StopLoss, true
	case p.TakeProfit > 0 && price <= p.TakeProfit:
		return models.CloseTakeProfit, p.TakeProfit, true
	}
	return "", 0, false
}

// Validate checks an order without executing it. Problems with user input
// come back as a structured result, never as an error.
func (e *FuturesEngine) Validate(order models.FuturesOrder) models.FuturesValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validate(order)
}

func (e *FuturesEngine) validate(order models.FuturesOrder) models.FuturesValidationResult {
	var res models.FuturesValidationResult
	if order.Side != models.SideLong && order.Side != models.SideShort {
		res.Error = fmt.Sprintf("unknown position side %q", order.Side)
		return res
	}
	if order.EntryPrice <= 0 {
		res.Error = "entry price must be positive"
		return res
	}
	if order.Leverage < MinLeverage || order.Leverage > MaxLeverage {
		res.Error = fmt.Sprintf("leverage must be between %dx and %dx", MinLeverage, MaxLeverage)
		return res
	}
	if order.Margin < MinMargin {
		res.Error = fmt.Sprintf("margin %.2f is below the %.2f minimum", order.Margin, MinMargin)
		return res
	}

	openFee := order.Margin * float64(order.Leverage) * FuturesFeeRate
	res.LiquidationPrice = LiquidationPrice(order.Side, order.EntryPrice, order.Leverage)
	res.MaxLoss = order.Margin + openFee

	balance := e.account.Balance()
	cost := order.Margin + openFee
	if cost > balance {
		res.Error = fmt.Sprintf("insufficient balance: need %.2f, have %.2f", cost, balance)
		return res
	}

	liq := res.LiquidationPrice
	if order.Side == models.SideLong {
		if order.StopLoss != 0 && (order.StopLoss >= order.EntryPrice || order.StopLoss <= liq) {
			res.Error = fmt.Sprintf("long stop loss must sit between the liquidation price %.2f and the entry", liq)
			return res
		}
		if order.TakeProfit != 0 && order.TakeProfit <= order.EntryPrice {
			res.Error = "long take profit must be above the entry price"
			return res
		}
	} else {
		if order.StopLoss != 0 && (order.StopLoss <= order.EntryPrice || order.StopLoss >= liq) {
			res.Error = fmt.Sprintf("short stop loss must sit between the entry and the liquidation price %.2f", liq)
			return res
		}
		if order.TakeProfit != 0 && order.TakeProfit >= order.EntryPrice {
			res.Error = "short take profit must be below the entry price"
			return res
		}
	}

	res.Valid = true
	if order.Leverage >= highLeverage {
		adverse := (1/float64(order.Leverage) - MaintenanceMarginRate) * 100
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%dx leverage liquidates after a %.1f%% adverse move", order.Leverage, adverse))
	}
	if cost > balance*halfBalanceRatio {
		res.Warnings = append(res.Warnings, "order locks more than half the available balance")
	}
	return res
}

// Open validates the order, charges margin plus the open fee, and creates
// the position. The returned position is a copy; the validation verdict is
// returned either way.
func (e *FuturesEngine) Open(order models.FuturesOrder) (*models.FuturesPosition, models.FuturesValidationResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.validate(order)
	if !res.Valid {
		return nil, res
	}
	openFee := order.Margin * float64(order.Leverage) * FuturesFeeRate
	if !e.account.Debit(order.Margin + openFee) {
		res.Valid = false
		res.Error = fmt.Sprintf("insufficient balance: need %.2f, have %.2f",
			order.Margin+openFee, e.account.Balance())
		return nil, res
	}

	p := &models.FuturesPosition{
		ID:               e.ids.NewID(),
		Symbol:           order.Symbol,
		Side:             order.Side,
		Status:           models.PositionOpen,
		Leverage:         order.Leverage,
		Margin:           order.Margin,
		EntryPrice:       order.EntryPrice,
		Quantity:         order.Margin * float64(order.Leverage) / order.EntryPrice,
		LiquidationPrice: res.LiquidationPrice,
		StopLoss:         order.StopLoss,
		TakeProfit:       order.TakeProfit,
		CurrentPrice:     order.EntryPrice,
		OpenFee:          openFee,
		OpenedAt:         e.now(),
	}
	e.positions = append(e.positions, p)
	return p.Clone(), res
}

// MarkToMarket revalues every open position on the symbol and fires at most
// one exit trigger per position. Triggered exits fill at the trigger level,
// not at the tick that crossed it. Returns copies of the positions closed
// by this tick.
func (e *FuturesEngine) MarkToMarket(symbol string, price float64) []*models.FuturesPosition {
	if price <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var closed []*models.FuturesPosition
	for _, p := range e.positions {
		if !p.Open() || p.Symbol != symbol {
			continue
		}
		p.CurrentPrice = price
		p.UnrealizedPnL = unrealizedPnL(p, price)
		p.UnrealizedPnLPct = p.UnrealizedPnL / p.Margin * 100
		if reason, level, ok := EvaluateTriggers(p, price); ok {
			e.close(p, level, reason)
			closed = append(closed, p.Clone())
		}
	}
	return closed
}

// Close exits the position at price with the given reason. Unknown ids and
// already terminal positions are errors.
func (e *FuturesEngine) Close(positionID string, price float64, reason models.CloseReason) (*models.FuturesPosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range e.positions {
		if p.ID != positionID {
			continue
		}
		if !p.Open() {
			return nil, fmt.Errorf("close position %s: already %s", positionID, p.Status)
		}
		e.close(p, price, reason)
		return p.Clone(), nil
	}
	return nil, fmt.Errorf("close position %s: not found", positionID)
}

// close settles the position at price. Lock must be held.
func (e *FuturesEngine) close(p *models.FuturesPosition, price float64, reason models.CloseReason) {
	pnl := unrealizedPnL(p, price)
	closeFee := p.Margin * float64(p.Leverage) * FuturesFeeRate
	status := models.PositionClosed
	if reason == models.CloseLiquidation {
		closeFee = 0
		status = models.PositionLiquidated
	}
	p.CurrentPrice = price
	p.UnrealizedPnL = pnl
	p.UnrealizedPnLPct = pnl / p.Margin * 100
	p.CloseFee = closeFee
	p.RealizedPnL = pnl - p.OpenFee - closeFee - p.FundingFees
	p.CloseReason = reason
	p.Status = status
	p.ClosedAt = e.now()
	e.account.Credit(p.Margin + p.RealizedPnL)
}

// ApplyFunding accrues funding on every open position at the given rate and
// returns how many positions it touched.
func (e *FuturesEngine) ApplyFunding(rate float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, p := range e.positions {
		if !p.Open() {
			continue
		}
		p.FundingFees += p.Quantity * p.CurrentPrice * rate
		n++
	}
	return n
}

// Position returns a copy of the position with the given id.
func (e *FuturesEngine) Position(positionID string) (*models.FuturesPosition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.positions {
		if p.ID == positionID {
			return p.Clone(), true
		}
	}
	return nil, false
}

// Positions returns copies of all positions, oldest first.
func (e *FuturesEngine) Positions() []*models.FuturesPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.FuturesPosition, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p.Clone())
	}
	return out
}

// OpenPositions returns copies of the positions still live, oldest first.
func (e *FuturesEngine) OpenPositions() []*models.FuturesPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*models.FuturesPosition
	for _, p := range e.positions {
		if p.Open() {
			out = append(out, p.Clone())
		}
	}
	return out
}

// MarginInUse sums the margin locked in open positions.
func (e *FuturesEngine) MarginInUse() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0.0
	for _, p := range e.positions {
		if p.Open() {
			total += p.Margin
		}
	}
	return total
}

// Restore replaces all positions from a snapshot.
func (e *FuturesEngine) Restore(positions []models.FuturesPosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions = make([]*models.FuturesPosition, 0, len(positions))
	for i := range positions {
		p := positions[i]
		e.positions = append(e.positions, &p)
	}
}

func unrealizedPnL(p *models.FuturesPosition, price float64) float64 {
	if p.Side == models.SideLong {
		return (price - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - price) * p.Quantity
}
