package models

// Requests for market data and signal HTTP endpoints. Defined in domain for
// consistency and reuse.

type SignalRequest struct {
	Symbol    string `param:"symbol" json:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit     int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=1000"`
	Profile   string `query:"profile" json:"profile" default:"auto" validate:"oneof=auto fast full"`
}

type CandlesRequest struct {
	Symbol    string `param:"symbol" json:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit     int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=1000"`
}

type ScanRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,dive,required"`
}
