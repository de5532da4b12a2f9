// Package analytics fuses indicator readings into classified trading
// signals. One engine, two profiles: the full profile votes across the whole
// indicator battery once enough candle history exists, the fast profile
// classifies a bare 24h snapshot and is capped at a lower quality ceiling.
package analytics

// Weights is the vote weight table for the full profile. Discriminative
// readings (extremes, full alignments, flips, divergence) carry 2, milder
// readings carry 1.
type Weights struct {
	RSIExtreme     int
	RSILean        int
	MACD           int
	EMAAligned     int
	EMAPartial     int
	BollingerBreak int
	BollingerNear  int
	StochBoth      int
	StochSingle    int
	CCIExtreme     int
	CCILean        int
	Williams       int
	ROCStrong      int
	ROCWeak        int
	MFI            int
	ADXStrong      int
	ADXLean        int
	TrendFlip      int
	OBV            int
	VWAP           int
	Engulfing      int
	WickReversal   int
	Structure      int
	Divergence     int
}

// Config carries every tunable the two profiles read: indicator periods,
// the vote weight table, classification thresholds and quality gates, key
// level multipliers, probability shifts and the fast-profile bands.
type Config struct {
	MinCandles int

	RSIPeriod        int
	EMAFast          int
	EMASlow          int
	BollingerPeriod  int
	BollingerK       float64
	StochKPeriod     int
	StochDPeriod     int
	CCIPeriod        int
	WilliamsPeriod   int
	ROCPeriod        int
	MFIPeriod        int
	ATRPeriod        int
	ADXPeriod        int
	SupertrendPeriod int
	SupertrendMult   float64
	OBVWindow        int
	DivergenceWindow int

	Weights Weights

	// RSI bands drive both votes and the neutral-band warning.
	RSIOversold       float64
	RSILeanOversold   float64
	RSIOverbought     float64
	RSILeanOverbought float64
	RSINeutralLow     float64
	RSINeutralHigh    float64

	// Net-confirmation thresholds for the nine classes, plus the quality
	// gates a signal must clear to reach the extreme/strong tiers.
	ExtremeNet     int
	StrongNet      int
	ModerateNet    int
	WeakNet        int
	ExtremeQuality float64
	StrongQuality  float64

	QualityPerVote    float64
	QualityPerWarning float64

	TrendADX       float64
	StrongTrendADX float64
	WeakTrendADX   float64

	ProbabilityShift int

	// Key level derivation.
	SupportEntryPad float64
	StopPad         float64
	StopATR         float64
	TP1ATR          float64
	TP2ATR          float64
	TP3ATR          float64

	// Fast profile: 24h change bands, range-position demotion bounds and
	// the hard quality ceiling.
	FastExtremePct  float64
	FastStrongPct   float64
	FastModeratePct float64
	FastWeakPct     float64
	FastRangeHigh   float64
	FastRangeLow    float64
	FastQualityCap  float64

	LowVolumeRatio float64
}

// DefaultConfig returns the tuned defaults for both profiles.
func DefaultConfig() Config {
	return Config{
		MinCandles: 20,

		RSIPeriod:        14,
		EMAFast:          20,
		EMASlow:          50,
		BollingerPeriod:  20,
		BollingerK:       2,
		StochKPeriod:     14,
		StochDPeriod:     3,
		CCIPeriod:        20,
		WilliamsPeriod:   14,
		ROCPeriod:        12,
		MFIPeriod:        14,
		ATRPeriod:        14,
		ADXPeriod:        14,
		SupertrendPeriod: 10,
		SupertrendMult:   3,
		OBVWindow:        10,
		DivergenceWindow: 10,

		Weights: Weights{
			RSIExtreme:     2,
			RSILean:        1,
			MACD:           1,
			EMAAligned:     2,
			EMAPartial:     1,
			BollingerBreak: 2,
			BollingerNear:  1,
			StochBoth:      2,
			StochSingle:    1,
			CCIExtreme:     2,
			CCILean:        1,
			Williams:       1,
			ROCStrong:      2,
			ROCWeak:        1,
			MFI:            2,
			ADXStrong:      2,
			ADXLean:        1,
			TrendFlip:      2,
			OBV:            1,
			VWAP:           1,
			Engulfing:      2,
			WickReversal:   1,
			Structure:      1,
			Divergence:     2,
		},

		RSIOversold:       30,
		RSILeanOversold:   40,
		RSIOverbought:     70,
		RSILeanOverbought: 60,
		RSINeutralLow:     45,
		RSINeutralHigh:    55,

		ExtremeNet:     12,
		StrongNet:      8,
		ModerateNet:    5,
		WeakNet:        3,
		ExtremeQuality: 70,
		StrongQuality:  55,

		QualityPerVote:    6,
		QualityPerWarning: 5,

		TrendADX:       25,
		StrongTrendADX: 40,
		WeakTrendADX:   20,

		ProbabilityShift: 10,

		SupportEntryPad: 1.01,
		StopPad:         0.98,
		StopATR:         2,
		TP1ATR:          2,
		TP2ATR:          3.5,
		TP3ATR:          5,

		FastExtremePct:  12,
		FastStrongPct:   7,
		FastModeratePct: 4,
		FastWeakPct:     1.5,
		FastRangeHigh:   0.9,
		FastRangeLow:    0.1,
		FastQualityCap:  40,

		LowVolumeRatio: 0.5,
	}
}
