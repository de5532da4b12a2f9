package models

import (
	"fmt"
	"strings"
	"time"
)

// TradeType is the direction of a spot trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// ParseTradeType maps a request string to a TradeType, case insensitively.
func ParseTradeType(s string) (TradeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(TradeBuy):
		return TradeBuy, nil
	case string(TradeSell):
		return TradeSell, nil
	default:
		return "", fmt.Errorf("unknown trade type %q", s)
	}
}

// SpotOrder is a fully typed trade request. Asset is the canonical asset id
// (the ledger key), Symbol the display ticker carried onto the trade row.
type SpotOrder struct {
	Asset    string
	Symbol   string
	Type     TradeType
	Quantity float64
}

// Trade is one executed spot trade. The trade list is append only and is the
// source of truth: holdings are always re-derivable by replaying it.
type Trade struct {
	ID         string
	Asset      string
	Symbol     string
	Type       TradeType
	Quantity   float64
	Price      float64
	Total      float64
	Fee        float64
	NetTotal   float64
	ExecutedAt time.Time
}

// Holding is the position in one spot asset. AverageBuyPrice stays within
// floating-point tolerance of TotalInvested/Quantity while Quantity > 0; the
// holding is removed once Quantity drops to <= 1e-8.
type Holding struct {
	Asset           string
	Symbol          string
	Quantity        float64
	AverageBuyPrice float64
	TotalInvested   float64
	CurrentPrice    float64
	CurrentValue    float64
	PnL             float64
	PnLPct          float64
}

// Portfolio is the cash balance plus all holdings, with derived totals.
// Only the spot ledger (trades, revaluation) and the futures engine (margin
// debit and credit) write to it.
type Portfolio struct {
	Balance       float64
	Holdings      map[string]Holding
	TotalInvested float64
	TotalValue    float64
	TotalPnL      float64
	TotalPnLPct   float64
}

// TradeValidationResult is the structured verdict for a trade request.
type TradeValidationResult struct {
	Valid    bool
	Error    string
	Warnings []string
}

// SimState is the snapshot persisted by the state store. Holdings are not
// stored; they are rebuilt by replaying Trades on load.
type SimState struct {
	InitialBalance float64
	Balance        float64
	Trades         []Trade
	Positions      []FuturesPosition
	SavedAt        time.Time
}
