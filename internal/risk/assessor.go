// Package risk turns weighted validation signals into a four-level risk classification.
package risk

import (
	"strings"

	"PublishGate/internal/domain"
)

// Weights is the score contribution of each signal.
type Weights struct {
	AuthorMissing      int `yaml:"authorMissing"`
	ShortcodeViolation int `yaml:"shortcodeViolation"`
	LinkBlocking       int `yaml:"linkBlocking"`
	LinkError          int `yaml:"linkError"`
	LinkWarning        int `yaml:"linkWarning"`
	Advisory           int `yaml:"advisory"`
}

// Bands are inclusive lower bounds of each level above LOW.
type Bands struct {
	Medium   int `yaml:"medium"`
	High     int `yaml:"high"`
	Critical int `yaml:"critical"`
}

// DefaultWeights weighs missing authors and shortcode violations most.
func DefaultWeights() Weights {
	return Weights{
		AuthorMissing:      40,
		ShortcodeViolation: 40,
		LinkBlocking:       25,
		LinkError:          8,
		LinkWarning:        4,
		Advisory:           3,
	}
}

// DefaultBands maps 0-19 to LOW, 20-49 to MEDIUM, 50-79 to HIGH and 80+ to CRITICAL.
func DefaultBands() Bands {
	return Bands{Medium: 20, High: 50, Critical: 80}
}

// Signals are issue counts gathered by the validation checks.
type Signals struct {
	AuthorMissing       bool
	LinkBlocking        int
	LinkErrors          int
	LinkWarnings        int
	ShortcodeViolations int
	Advisories          int
}

// Assessment is the derived risk of one record.
type Assessment struct {
	Level    domain.RiskLevel `json:"level"`
	Score    int              `json:"score"`
	Computed domain.RiskLevel `json:"computed"`
	Assigned domain.RiskLevel `json:"assigned"`
}

// Assessor is a pure function of its configuration, the record and the signals.
type Assessor struct {
	weights Weights
	bands   Bands
}

// New returns an assessor. Zero-valued weights or bands fall back to the defaults.
func New(weights Weights, bands Bands) *Assessor {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if bands == (Bands{}) {
		bands = DefaultBands()
	}
	return &Assessor{weights: weights, bands: bands}
}

// Score accumulates the weighted signal counts.
func (a *Assessor) Score(s Signals) int {
	score := 0
	if s.AuthorMissing {
		score += a.weights.AuthorMissing
	}
	score += nonNegative(s.ShortcodeViolations) * a.weights.ShortcodeViolation
	score += nonNegative(s.LinkBlocking) * a.weights.LinkBlocking
	score += nonNegative(s.LinkErrors) * a.weights.LinkError
	score += nonNegative(s.LinkWarnings) * a.weights.LinkWarning
	score += nonNegative(s.Advisories) * a.weights.Advisory
	return score
}

// Level maps a score onto the bands.
func (a *Assessor) Level(score int) domain.RiskLevel {
	switch {
	case score >= a.bands.Critical:
		return domain.RiskCritical
	case score >= a.bands.High:
		return domain.RiskHigh
	case score >= a.bands.Medium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Assess combines the computed level with the level already assigned to the record, keeping the higher.
// Without precomputed signals only the record's own author field contributes.
func (a *Assessor) Assess(record domain.ContentRecord, signals *Signals) Assessment {
	s := Signals{AuthorMissing: strings.TrimSpace(record.AuthorID) == ""}
	if signals != nil {
		s = *signals
	}

	score := a.Score(s)
	computed := a.Level(score)
	return Assessment{
		Level:    domain.MaxRisk(record.RiskLevel, computed),
		Score:    score,
		Computed: computed,
		Assigned: record.RiskLevel,
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
