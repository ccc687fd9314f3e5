// Package config holds the immutable configuration value the onset
// detection pipeline is constructed with. Parsing a config file into this
// struct is an external collaborator's job (cmd/); this package only
// defines defaults and validates structural invariants.
package config

// RetSemantics pins how ret_1s is computed, fixed at construction time.
// Real-world onset scripts have historically mixed per-tick and windowed
// return semantics; this implementation requires exactly one, for the
// whole lifetime of a pipeline.
type RetSemantics string

const (
	// RetWindow1s computes ret_1s as the log return versus the price at
	// or before ts-1000ms (falling back to the earliest available prior
	// price). This is the default and the only semantics the Feature
	// Engine implements; RetPerTick exists solely so Validate can reject
	// a config that asks for it, documenting the rejected alternative.
	RetWindow1s RetSemantics = "window_1s"
	RetPerTick  RetSemantics = "per_tick"
)

// FeaturesConfig configures the Feature Engine.
type FeaturesConfig struct {
	// VolWindowS is the trailing window, in seconds, used to compute the
	// z-score baseline for vol_1s. Default 300.
	VolWindowS int `yaml:"vol_window_s"`
	// RetClamp bounds |ret_1s| to defend against quote corruption.
	// Default 0.1.
	RetClamp float64 `yaml:"ret_clamp"`
	// RetSemantics fixes how ret_1s is computed (see RetSemantics above).
	RetSemantics RetSemantics `yaml:"ret_semantics"`
}

// CPDPriceConfig configures the price (CUSUM) axis of the CPD gate.
type CPDPriceConfig struct {
	KSigma  float64 `yaml:"k_sigma"`
	HMult   float64 `yaml:"h_mult"`
	MinPreS int     `yaml:"min_pre_s"`
}

type CPDVolumeConfig struct {
	Delta  float64 `yaml:"delta"`
	Lambda float64 `yaml:"lambda"`
}

// CPDConfig configures the optional change-point pre-filter.
type CPDConfig struct {
	Use       bool            `yaml:"use"`
	Price     CPDPriceConfig  `yaml:"price"`
	Volume    CPDVolumeConfig `yaml:"volume"`
	CooldownS float64         `yaml:"cooldown_s"`
}

// DetectionConfig configures the Candidate Detector's absolute
// thresholds.
type DetectionConfig struct {
	MinAxesRequired    int     `yaml:"min_axes_required"`
	RetThreshold       float64 `yaml:"ret_1s_threshold"`
	ZVolThreshold      float64 `yaml:"z_vol_threshold"`
	SpreadNarrowingPct float64 `yaml:"spread_narrowing_pct"`
	BaselineWindowS    int     `yaml:"baseline_window_s"`
}

// ConfirmDeltaConfig configures the per-axis delta-improvement minimums.
type ConfirmDeltaConfig struct {
	RetMin     float64 `yaml:"ret_min"`
	ZVolMin    float64 `yaml:"zvol_min"`
	SpreadDrop float64 `yaml:"spread_drop"`
}

// ConfirmConfig configures the Confirm Detector — the core stateful
// component that decides whether a candidate becomes a confirmed onset.
type ConfirmConfig struct {
	WindowS          int                `yaml:"window_s"`
	PreWindowS       int                `yaml:"pre_window_s"`
	PersistentN      int                `yaml:"persistent_n"`
	MinAxes          int                `yaml:"min_axes"`
	RequirePriceAxis *bool              `yaml:"require_price_axis"`
	ExcludeCandPoint *bool              `yaml:"exclude_cand_point"`
	Delta            ConfirmDeltaConfig `yaml:"delta"`
	OnsetStrengthMin float64            `yaml:"onset_strength_min"`
}

// RequirePriceAxisOrDefault reports the effective require_price_axis
// value, treating an unset pointer (no YAML override) as the tuned
// default of true.
func (c ConfirmConfig) RequirePriceAxisOrDefault() bool {
	return c.RequirePriceAxis == nil || *c.RequirePriceAxis
}

// ExcludeCandPointOrDefault reports the effective exclude_cand_point
// value, treating an unset pointer as the tuned default of true.
func (c ConfirmConfig) ExcludeCandPointOrDefault() bool {
	return c.ExcludeCandPoint == nil || *c.ExcludeCandPoint
}

// RefractoryConfig configures the post-confirmation cooldown.
type RefractoryConfig struct {
	DurationS       float64 `yaml:"duration_s"`
	ExtendOnConfirm *bool   `yaml:"extend_on_confirm"`
}

// ExtendOnConfirmOrDefault reports the effective extend_on_confirm
// value, treating an unset pointer as the tuned default of true.
func (c RefractoryConfig) ExtendOnConfirmOrDefault() bool {
	return c.ExtendOnConfirm == nil || *c.ExtendOnConfirm
}

// BoolPtr is a small helper for populating the *bool config knobs that
// need to distinguish "unset" from an explicit false, both in Default()
// and in callers (including tests) that build a Config literal by hand.
func BoolPtr(b bool) *bool { return &b }

// Config is the full, immutable configuration for one pipeline instance.
// Swapping configuration requires tearing down and rebuilding the
// pipeline — no live reconfiguration.
type Config struct {
	Features   FeaturesConfig   `yaml:"features"`
	CPD        CPDConfig        `yaml:"cpd"`
	Detection  DetectionConfig  `yaml:"detection"`
	Confirm    ConfirmConfig    `yaml:"confirm"`
	Refractory RefractoryConfig `yaml:"refractory"`
}

// Default returns the tuned-default configuration.
func Default() Config {
	return Config{
		Features: FeaturesConfig{
			VolWindowS:   300,
			RetClamp:     0.1,
			RetSemantics: RetWindow1s,
		},
		CPD: CPDConfig{
			Use: false,
			Price: CPDPriceConfig{
				KSigma:  0.7,
				HMult:   6.0,
				MinPreS: 10,
			},
			Volume: CPDVolumeConfig{
				Delta:  0.05,
				Lambda: 6.0,
			},
			CooldownS: 3.0,
		},
		Detection: DetectionConfig{
			MinAxesRequired:    2,
			RetThreshold:       0.002,
			ZVolThreshold:      2.5,
			SpreadNarrowingPct: 0.6,
			BaselineWindowS:    60,
		},
		Confirm: ConfirmConfig{
			WindowS:          12,
			PreWindowS:       5,
			PersistentN:      22,
			MinAxes:          2,
			RequirePriceAxis: BoolPtr(true),
			ExcludeCandPoint: BoolPtr(true),
			Delta: ConfirmDeltaConfig{
				RetMin:     0.0001,
				ZVolMin:    0.1,
				SpreadDrop: 0.0001,
			},
			OnsetStrengthMin: 0.67,
		},
		Refractory: RefractoryConfig{
			DurationS:       45,
			ExtendOnConfirm: BoolPtr(true),
		},
	}
}

// Validate checks structural invariants and returns a *Error naming the
// offending key on the first violation found. A pipeline must never be
// constructed from an invalid config — this is fatal at startup, not a
// runtime condition.
func (c Config) Validate() error {
	if c.Features.VolWindowS <= 0 {
		return errf("features.vol_window_s", "must be positive, got %d", c.Features.VolWindowS)
	}
	if c.Features.RetClamp <= 0 {
		return errf("features.ret_clamp", "must be positive, got %v", c.Features.RetClamp)
	}
	switch c.Features.RetSemantics {
	case RetWindow1s:
	case RetPerTick:
		return errf("features.ret_semantics", "per_tick semantics is not supported by this implementation; the source mixes per-tick and windowed semantics across scripts, this core fixes window_1s")
	case "":
		// allowed: caller will default it
	default:
		return errf("features.ret_semantics", "unknown value %q", c.Features.RetSemantics)
	}

	if c.CPD.Use {
		if c.CPD.Price.KSigma <= 0 {
			return errf("cpd.price.k_sigma", "must be positive, got %v", c.CPD.Price.KSigma)
		}
		if c.CPD.Price.HMult <= 0 {
			return errf("cpd.price.h_mult", "must be positive, got %v", c.CPD.Price.HMult)
		}
		if c.CPD.Price.MinPreS <= 0 {
			return errf("cpd.price.min_pre_s", "must be positive, got %d", c.CPD.Price.MinPreS)
		}
		if c.CPD.Volume.Lambda <= 0 {
			return errf("cpd.volume.lambda", "must be positive, got %v", c.CPD.Volume.Lambda)
		}
		if c.CPD.CooldownS < 0 {
			return errf("cpd.cooldown_s", "must be non-negative, got %v", c.CPD.CooldownS)
		}
	}

	if c.Detection.MinAxesRequired < 1 || c.Detection.MinAxesRequired > 3 {
		return errf("detection.min_axes_required", "must be in [1,3], got %d", c.Detection.MinAxesRequired)
	}
	if c.Detection.RetThreshold <= 0 {
		return errf("onset.speed.ret_1s_threshold", "must be positive, got %v", c.Detection.RetThreshold)
	}
	if c.Detection.ZVolThreshold <= 0 {
		return errf("onset.participation.z_vol_threshold", "must be positive, got %v", c.Detection.ZVolThreshold)
	}
	if c.Detection.SpreadNarrowingPct <= 0 || c.Detection.SpreadNarrowingPct >= 1 {
		return errf("onset.friction.spread_narrowing_pct", "must be in (0,1), got %v", c.Detection.SpreadNarrowingPct)
	}
	if c.Detection.BaselineWindowS <= 0 {
		return errf("detection.baseline_window_s", "must be positive, got %d", c.Detection.BaselineWindowS)
	}

	if c.Confirm.WindowS <= 0 {
		return errf("confirm.window_s", "must be positive, got %d", c.Confirm.WindowS)
	}
	if c.Confirm.PreWindowS <= 0 {
		return errf("confirm.pre_window_s", "must be positive, got %d", c.Confirm.PreWindowS)
	}
	if c.Confirm.PersistentN <= 0 {
		return errf("confirm.persistent_n", "must be positive, got %d", c.Confirm.PersistentN)
	}
	if c.Confirm.MinAxes < 1 || c.Confirm.MinAxes > 3 {
		return errf("confirm.min_axes", "must be in [1,3], got %d", c.Confirm.MinAxes)
	}
	if c.Confirm.OnsetStrengthMin < 0 || c.Confirm.OnsetStrengthMin > 1 {
		return errf("confirm.onset_strength_min", "must be in [0,1], got %v", c.Confirm.OnsetStrengthMin)
	}

	if c.Refractory.DurationS < 0 {
		return errf("refractory.duration_s", "must be non-negative, got %v", c.Refractory.DurationS)
	}

	return nil
}

// WithDefaults returns a copy of c with zero-valued fields that have a
// sensible tuned default filled in. Used by config-file loaders so a
// partial YAML document still produces a usable Config.
func (c Config) WithDefaults() Config {
	d := Default()

	if c.Features.VolWindowS != 0 {
		d.Features.VolWindowS = c.Features.VolWindowS
	}
	if c.Features.RetClamp != 0 {
		d.Features.RetClamp = c.Features.RetClamp
	}
	if c.Features.RetSemantics != "" {
		d.Features.RetSemantics = c.Features.RetSemantics
	}

	d.CPD.Use = c.CPD.Use
	if c.CPD.Price.KSigma != 0 {
		d.CPD.Price.KSigma = c.CPD.Price.KSigma
	}
	if c.CPD.Price.HMult != 0 {
		d.CPD.Price.HMult = c.CPD.Price.HMult
	}
	if c.CPD.Price.MinPreS != 0 {
		d.CPD.Price.MinPreS = c.CPD.Price.MinPreS
	}
	if c.CPD.Volume.Delta != 0 {
		d.CPD.Volume.Delta = c.CPD.Volume.Delta
	}
	if c.CPD.Volume.Lambda != 0 {
		d.CPD.Volume.Lambda = c.CPD.Volume.Lambda
	}
	if c.CPD.CooldownS != 0 {
		d.CPD.CooldownS = c.CPD.CooldownS
	}

	if c.Detection.MinAxesRequired != 0 {
		d.Detection.MinAxesRequired = c.Detection.MinAxesRequired
	}
	if c.Detection.RetThreshold != 0 {
		d.Detection.RetThreshold = c.Detection.RetThreshold
	}
	if c.Detection.ZVolThreshold != 0 {
		d.Detection.ZVolThreshold = c.Detection.ZVolThreshold
	}
	if c.Detection.SpreadNarrowingPct != 0 {
		d.Detection.SpreadNarrowingPct = c.Detection.SpreadNarrowingPct
	}
	if c.Detection.BaselineWindowS != 0 {
		d.Detection.BaselineWindowS = c.Detection.BaselineWindowS
	}

	if c.Confirm.WindowS != 0 {
		d.Confirm.WindowS = c.Confirm.WindowS
	}
	if c.Confirm.PreWindowS != 0 {
		d.Confirm.PreWindowS = c.Confirm.PreWindowS
	}
	if c.Confirm.PersistentN != 0 {
		d.Confirm.PersistentN = c.Confirm.PersistentN
	}
	if c.Confirm.MinAxes != 0 {
		d.Confirm.MinAxes = c.Confirm.MinAxes
	}
	if c.Confirm.RequirePriceAxis != nil {
		d.Confirm.RequirePriceAxis = c.Confirm.RequirePriceAxis
	}
	if c.Confirm.ExcludeCandPoint != nil {
		d.Confirm.ExcludeCandPoint = c.Confirm.ExcludeCandPoint
	}
	if c.Confirm.Delta.RetMin != 0 {
		d.Confirm.Delta.RetMin = c.Confirm.Delta.RetMin
	}
	if c.Confirm.Delta.ZVolMin != 0 {
		d.Confirm.Delta.ZVolMin = c.Confirm.Delta.ZVolMin
	}
	if c.Confirm.Delta.SpreadDrop != 0 {
		d.Confirm.Delta.SpreadDrop = c.Confirm.Delta.SpreadDrop
	}
	if c.Confirm.OnsetStrengthMin != 0 {
		d.Confirm.OnsetStrengthMin = c.Confirm.OnsetStrengthMin
	}

	if c.Refractory.DurationS != 0 {
		d.Refractory.DurationS = c.Refractory.DurationS
	}
	if c.Refractory.ExtendOnConfirm != nil {
		d.Refractory.ExtendOnConfirm = c.Refractory.ExtendOnConfirm
	}

	return d
}
