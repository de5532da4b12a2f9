package analytics

import "CoinSim/internal/domain/models"

// baseProbabilities is the classification-keyed scenario table for buy-side
// ranks; sell-side ranks mirror it with bullish and bearish swapped. Order:
// bullish, bearish, reversal, consolidation, each row summing to 100.
var baseProbabilities = map[int][4]int{
	0: {25, 25, 15, 35},
	1: {40, 20, 15, 25},
	2: {50, 15, 10, 25},
	3: {60, 10, 10, 20},
	4: {70, 5, 10, 15},
}

// probabilities builds the scenario probabilities for a classified signal,
// shifts weight between the dominant direction and consolidation on trend
// strength, and renormalizes so the four buckets sum to exactly 100 with
// the remainder absorbed by consolidation.
func (c Config) probabilities(class models.SignalType, adx float64) models.Probabilities {
	rank := class.Rank()
	abs := rank
	if abs < 0 {
		abs = -rank
	}

	row := baseProbabilities[abs]
	p := models.Probabilities{
		Bullish:       row[0],
		Bearish:       row[1],
		Reversal:      row[2],
		Consolidation: row[3],
	}
	if rank < 0 {
		p.Bullish, p.Bearish = p.Bearish, p.Bullish
	}

	if rank != 0 {
		dominant := &p.Bullish
		if rank < 0 {
			dominant = &p.Bearish
		}
		switch {
		case adx > c.StrongTrendADX:
			moved := min(c.ProbabilityShift, p.Consolidation)
			p.Consolidation -= moved
			*dominant += moved
		case adx < c.WeakTrendADX:
			moved := min(c.ProbabilityShift, *dominant)
			*dominant -= moved
			p.Consolidation += moved
		}
	}

	p.Consolidation += 100 - p.Sum()
	return p
}
