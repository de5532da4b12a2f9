package models

import "time"

// SignalType is one of nine ordered classes from extreme sell to extreme buy.
type SignalType string

const (
	SignalExtremeSell SignalType = "EXTREME_SELL"
	SignalStrongSell  SignalType = "STRONG_SELL"
	SignalSell        SignalType = "SELL"
	SignalWeakSell    SignalType = "WEAK_SELL"
	SignalNeutral     SignalType = "NEUTRAL"
	SignalWeakBuy     SignalType = "WEAK_BUY"
	SignalBuy         SignalType = "BUY"
	SignalStrongBuy   SignalType = "STRONG_BUY"
	SignalExtremeBuy  SignalType = "EXTREME_BUY"
)

// Rank orders signal types from -4 (extreme sell) to +4 (extreme buy).
func (s SignalType) Rank() int {
	switch s {
	case SignalExtremeSell:
		return -4
	case SignalStrongSell:
		return -3
	case SignalSell:
		return -2
	case SignalWeakSell:
		return -1
	case SignalWeakBuy:
		return 1
	case SignalBuy:
		return 2
	case SignalStrongBuy:
		return 3
	case SignalExtremeBuy:
		return 4
	default:
		return 0
	}
}

// Bullish reports whether the class recommends buying.
func (s SignalType) Bullish() bool { return s.Rank() > 0 }

// Bearish reports whether the class recommends selling.
func (s SignalType) Bearish() bool { return s.Rank() < 0 }

// SignalProfile marks which analysis path produced a signal.
type SignalProfile string

const (
	ProfileFull SignalProfile = "full"
	ProfileFast SignalProfile = "fast"
)

// KeyLevels are price levels derived from a classified signal.
type KeyLevels struct {
	Entry             float64
	StopLoss          float64
	TakeProfit1       float64
	TakeProfit2       float64
	TakeProfit3       float64
	RiskRewardRatio   float64
	NearestSupport    float64
	NearestResistance float64
}

// Probabilities are integer scenario percentages summing to exactly 100.
type Probabilities struct {
	Bullish       int
	Bearish       int
	Reversal      int
	Consolidation int
}

// Sum returns the total of all four buckets.
func (p Probabilities) Sum() int {
	return p.Bullish + p.Bearish + p.Reversal + p.Consolidation
}

// Signal is the classified recommendation for one symbol. A signal is
// produced fresh on every evaluation and never mutated afterwards.
type Signal struct {
	Symbol        string
	Price         float64
	Type          SignalType
	Profile       SignalProfile
	Confidence    float64
	QualityScore  float64
	Confirmations []string
	Warnings      []string
	KeyLevels     KeyLevels
	Probabilities Probabilities
	GeneratedAt   time.Time
}
