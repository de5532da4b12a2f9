package analytics

import "CoinSim/internal/domain/models"

// classify maps a net confirmation score and its quality onto the nine
// signal classes. The extreme and strong tiers additionally require their
// quality gate; a vote-heavy but warning-heavy signal falls through to the
// next tier down until its gate passes.
func (c Config) classify(net int, quality float64) models.SignalType {
	abs := net
	if abs < 0 {
		abs = -net
	}

	rank := 0
	switch {
	case abs >= c.ExtremeNet && quality >= c.ExtremeQuality:
		rank = 4
	case abs >= c.StrongNet && quality >= c.StrongQuality:
		rank = 3
	case abs >= c.ModerateNet:
		rank = 2
	case abs >= c.WeakNet:
		rank = 1
	}

	if net < 0 {
		rank = -rank
	}
	return typeForRank(rank)
}

// typeForRank is the inverse of models.SignalType.Rank.
func typeForRank(rank int) models.SignalType {
	switch rank {
	case -4:
		return models.SignalExtremeSell
	case -3:
		return models.SignalStrongSell
	case -2:
		return models.SignalSell
	case -1:
		return models.SignalWeakSell
	case 1:
		return models.SignalWeakBuy
	case 2:
		return models.SignalBuy
	case 3:
		return models.SignalStrongBuy
	case 4:
		return models.SignalExtremeBuy
	default:
		return models.SignalNeutral
	}
}

// qualityScore is min(100, max(0, dominant*perVote - warnings*perWarning)).
func (c Config) qualityScore(dominant, warnings int) float64 {
	q := float64(dominant)*c.QualityPerVote - float64(warnings)*c.QualityPerWarning
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}

// confidence is |net| over total votes as a percentage, 0 without votes.
func confidence(bullish, bearish int) float64 {
	total := bullish + bearish
	if total == 0 {
		return 0
	}
	net := bullish - bearish
	if net < 0 {
		net = -net
	}
	return float64(net) / float64(total) * 100
}
