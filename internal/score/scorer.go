package score

import (
	"math"

	"github.com/ppiankov/claimwatch/internal/model"
)

// Scorer ranks claims and turns verification results into verdicts.
// All methods are pure and safe for concurrent use.
type Scorer struct {
	cfg model.ScoringConfig
}

// NewScorer creates a new scorer, filling unset weights from the defaults
func NewScorer(cfg model.ScoringConfig) *Scorer {
	def := model.DefaultConfig().Scoring

	if len(cfg.MethodWeights) == 0 {
		cfg.MethodWeights = def.MethodWeights
	}
	if len(cfg.TypeWeights) == 0 {
		cfg.TypeWeights = def.TypeWeights
	}
	if cfg.VerifiedThreshold == 0 {
		cfg.VerifiedThreshold = def.VerifiedThreshold
	}
	if cfg.DisputedThreshold == 0 {
		cfg.DisputedThreshold = def.DisputedThreshold
	}

	return &Scorer{cfg: cfg}
}

// Config returns the effective scoring configuration
func (s *Scorer) Config() model.ScoringConfig {
	return s.cfg
}

// verdictFor applies the score thresholds
func (s *Scorer) verdictFor(score float64) model.Verdict {
	switch {
	case score >= s.cfg.VerifiedThreshold:
		return model.VerdictVerified
	case score <= s.cfg.DisputedThreshold:
		return model.VerdictDisputed
	default:
		return model.VerdictUncertain
	}
}

// stable rounds to nine decimal places so threshold comparisons are not
// decided by floating point noise (0.4*0.8/0.8 != 0.4)
func stable(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
