package models

import (
	"fmt"
	"strings"
	"time"
)

// PositionSide is the direction of a leveraged position.
type PositionSide string

const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// ParseSide maps a request string to a PositionSide, case insensitively.
func ParseSide(s string) (PositionSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideLong):
		return SideLong, nil
	case string(SideShort):
		return SideShort, nil
	default:
		return "", fmt.Errorf("unknown position side %q", s)
	}
}

// PositionStatus tracks the single OPEN to terminal transition.
type PositionStatus string

const (
	PositionOpen       PositionStatus = "OPEN"
	PositionClosed     PositionStatus = "CLOSED"
	PositionLiquidated PositionStatus = "LIQUIDATED"
)

// CloseReason records why a position left the OPEN state.
type CloseReason string

const (
	CloseManual      CloseReason = "MANUAL"
	CloseStopLoss    CloseReason = "STOP_LOSS"
	CloseTakeProfit  CloseReason = "TAKE_PROFIT"
	CloseLiquidation CloseReason = "LIQUIDATION"
)

// FuturesPosition is one leveraged position. It is created by open, mutated
// only by mark-to-market while OPEN (CurrentPrice, UnrealizedPnL) and
// transitions exactly once to CLOSED or LIQUIDATED, after which it is
// immutable history.
type FuturesPosition struct {
	ID               string
	Symbol           string
	Side             PositionSide
	Status           PositionStatus
	Leverage         int
	Margin           float64
	EntryPrice       float64
	Quantity         float64
	LiquidationPrice float64
	StopLoss         float64 // 0 when unset
	TakeProfit       float64 // 0 when unset
	CurrentPrice     float64
	UnrealizedPnL    float64
	UnrealizedPnLPct float64
	RealizedPnL      float64
	OpenFee          float64
	CloseFee         float64
	FundingFees      float64
	CloseReason      CloseReason
	OpenedAt         time.Time
	ClosedAt         time.Time
}

// Open reports whether the position is still live.
func (p *FuturesPosition) Open() bool { return p.Status == PositionOpen }

// Clone returns an independent copy, so callers can hand out position state
// without exposing the engine's mutable record.
func (p *FuturesPosition) Clone() *FuturesPosition {
	c := *p
	return &c
}

// FuturesOrder is a fully typed open request, produced by the transport layer
// from the raw request body before it reaches the engine.
type FuturesOrder struct {
	Symbol     string
	Side       PositionSide
	Margin     float64
	Leverage   int
	EntryPrice float64
	StopLoss   float64 // 0 when unset
	TakeProfit float64 // 0 when unset
}

// FuturesValidationResult is the structured verdict for an open request.
// Invalid requests are results, not errors.
type FuturesValidationResult struct {
	Valid            bool
	Error            string
	Warnings         []string
	LiquidationPrice float64
	MaxLoss          float64
}
