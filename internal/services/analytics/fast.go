package analytics

import (
	"fmt"
	"math"

	"CoinSim/internal/domain/models"
)

// Fast-profile scaling of the 24h change into quality and confidence.
const (
	fastQualityPerPct    = 4.0
	fastConfidencePerPct = 6.0
	fastConfidenceCap    = 90.0
)

// AnalyzeSnapshot is the fast profile: a coarse classification from a 24h
// ticker snapshot, used whenever candle history is missing or too short.
// Quality is hard-capped because nothing confirms the move; the path stays
// separate from the full profile and is never silently upgraded.
func (a *Analyzer) AnalyzeSnapshot(asset models.Asset) *models.Signal {
	cfg := a.cfg
	change := asset.ChangePct24h
	abs := math.Abs(change)

	rangePos := 0.5
	if spread := asset.High24h - asset.Low24h; spread > 0 {
		rangePos = (asset.CurrentPrice - asset.Low24h) / spread
	}

	rank := 0
	switch {
	case abs >= cfg.FastExtremePct:
		rank = 4
	case abs >= cfg.FastStrongPct:
		rank = 3
	case abs >= cfg.FastModeratePct:
		rank = 2
	case abs >= cfg.FastWeakPct:
		rank = 1
	}
	if change < 0 {
		rank = -rank
	}

	var confirmations, warnings []string
	if rank != 0 {
		confirmations = append(confirmations, fmt.Sprintf("24h change %+.1f%%", change))
	}

	// An extreme position in the 24h range argues against chasing the
	// move: demote one step. A supportive position is a confirmation.
	switch {
	case rank > 0 && rangePos > cfg.FastRangeHigh:
		rank--
		warnings = append(warnings, "price at the top of its 24h range")
	case rank < 0 && rangePos < cfg.FastRangeLow:
		rank++
		warnings = append(warnings, "price at the bottom of its 24h range")
	case rank > 0 && rangePos > 0.5:
		confirmations = append(confirmations, "price in the upper half of its 24h range")
	case rank < 0 && rangePos < 0.5:
		confirmations = append(confirmations, "price in the lower half of its 24h range")
	}
	warnings = append(warnings, "24h snapshot only, no indicator confirmation")

	class := typeForRank(rank)
	atrProxy := (asset.High24h - asset.Low24h) / 4

	return &models.Signal{
		Symbol:        asset.Symbol,
		Price:         asset.CurrentPrice,
		Type:          class,
		Profile:       models.ProfileFast,
		Confidence:    math.Min(fastConfidenceCap, abs*fastConfidencePerPct),
		QualityScore:  math.Min(cfg.FastQualityCap, abs*fastQualityPerPct),
		Confirmations: confirmations,
		Warnings:      warnings,
		KeyLevels:     cfg.deriveLevels(class, asset.CurrentPrice, atrProxy, asset.Low24h, asset.High24h),
		Probabilities: cfg.probabilities(class, cfg.TrendADX),
		GeneratedAt:   a.now(),
	}
}
