package analytics

import (
	"math"

	"CoinSim/internal/domain/models"
)

// deriveLevels turns a classification into entry/stop/target levels around
// the nearest support and resistance. Bullish classes enter near support
// with an ATR ladder above, bearish classes mirror around resistance, and
// neutral classes price a breakout above resistance. A missing level (0)
// falls back to the current price.
func (c Config) deriveLevels(class models.SignalType, price, atr, support, resistance float64) models.KeyLevels {
	kl := models.KeyLevels{NearestSupport: support, NearestResistance: resistance}

	var entry, stop float64
	direction := 1.0

	switch {
	case class.Bullish():
		entry = price
		if support > 0 {
			entry = math.Min(price, support*c.SupportEntryPad)
		}
		stop = entry - c.StopATR*atr
		if support > 0 {
			stop = math.Max(stop, support*c.StopPad)
		}
	case class.Bearish():
		direction = -1
		entry = price
		if resistance > 0 {
			entry = math.Max(price, resistance*(2-c.SupportEntryPad))
		}
		stop = entry + c.StopATR*atr
		if resistance > 0 {
			stop = math.Min(stop, resistance*(2-c.StopPad))
		}
	default:
		// Breakout above resistance, stop back inside the range.
		entry = price
		if resistance > 0 {
			entry = resistance * c.SupportEntryPad
			stop = resistance * c.StopPad
		} else {
			stop = entry - c.StopATR*atr
		}
	}

	kl.Entry = entry
	kl.StopLoss = stop
	kl.TakeProfit1 = entry + direction*c.TP1ATR*atr
	kl.TakeProfit2 = entry + direction*c.TP2ATR*atr
	kl.TakeProfit3 = entry + direction*c.TP3ATR*atr

	switch {
	case class.Bullish():
		if resistance > 0 && kl.TakeProfit3 > resistance {
			kl.TakeProfit3 = resistance
		}
	case class.Bearish():
		if support > 0 && kl.TakeProfit3 < support {
			kl.TakeProfit3 = support
		}
	}

	if diff := math.Abs(entry - stop); diff > 0 {
		kl.RiskRewardRatio = math.Abs(kl.TakeProfit1-entry) / diff
	}
	return kl
}
