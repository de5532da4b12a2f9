package models

// Requests for trading HTTP endpoints. Business rules (margin floor, balance
// checks, stop placement) are enforced by the engines as structured results;
// tags here only reject malformed input.

type TradeRequest struct {
	Asset    string  `json:"asset" validate:"required"`
	Symbol   string  `json:"symbol"`
	Type     string  `json:"type" validate:"required,oneof=BUY SELL buy sell"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

type FuturesOpenRequest struct {
	Symbol     string  `json:"symbol" validate:"required"`
	Side       string  `json:"side" validate:"required,oneof=LONG SHORT long short"`
	Margin     float64 `json:"margin" validate:"required,gt=0"`
	Leverage   int     `json:"leverage" default:"10" validate:"gte=1,lte=100"`
	StopLoss   float64 `json:"stopLoss" validate:"omitempty,gt=0"`
	TakeProfit float64 `json:"takeProfit" validate:"omitempty,gt=0"`
}

type FuturesCloseRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}

type PositionsRequest struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=OPEN CLOSED LIQUIDATED"`
}

type TradesRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
