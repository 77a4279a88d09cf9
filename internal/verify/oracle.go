package verify

import (
	"context"
	"regexp"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/score"
)

// Oracle answers whether one source category supports a claim
type Oracle interface {
	Verify(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error)

// Verify calls f
func (f OracleFunc) Verify(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error) {
	return f(ctx, claimText, method)
}

var (
	attributionPattern = regexp.MustCompile(`(?i)(according to|published in|peer[- ]reviewed|data from|report(ed)? by|\bcdc\b|\bwho\b|\bfda\b)`)
	hedgePattern       = regexp.MustCompile(`(?i)\b(may|might|could|possibly|reportedly|allegedly|rumou?red)\b`)
)

var heuristicBase = map[model.Method]struct {
	credibility float64
	confidence  float64
}{
	model.MethodNews:         {0.6, 0.5},
	model.MethodGovernment:   {0.6, 0.6},
	model.MethodAcademic:     {0.6, 0.6},
	model.MethodFactCheckers: {0.55, 0.55},
	model.MethodSocialMedia:  {0.5, 0.3},
}

// HeuristicOracle is an offline oracle that scores claims from their wording.
// Red-flag phrasing lowers credibility and sourced phrasing raises it.
// It never fails and is deterministic for a given input.
type HeuristicOracle struct {
	verifiedThreshold float64
	disputedThreshold float64
}

// NewHeuristicOracle uses the scoring thresholds for its per-method verdicts
func NewHeuristicOracle(cfg model.ScoringConfig) *HeuristicOracle {
	def := model.DefaultConfig().Scoring
	if cfg.VerifiedThreshold == 0 {
		cfg.VerifiedThreshold = def.VerifiedThreshold
	}
	if cfg.DisputedThreshold == 0 {
		cfg.DisputedThreshold = def.DisputedThreshold
	}
	return &HeuristicOracle{verifiedThreshold: cfg.VerifiedThreshold, disputedThreshold: cfg.DisputedThreshold}
}

// Verify implements Oracle
func (h *HeuristicOracle) Verify(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, ok := heuristicBase[method]
	if !ok {
		base = heuristicBase[model.MethodNews]
	}

	credibility := base.credibility
	credibility -= 0.2 * float64(len(score.DetectRedFlags(claimText)))
	if attributionPattern.MatchString(claimText) {
		credibility += 0.15
	}
	if hedgePattern.MatchString(claimText) {
		credibility -= 0.05
	}
	credibility = model.Clamp01(credibility)

	verdict := model.VerdictUncertain
	switch {
	case credibility >= h.verifiedThreshold:
		verdict = model.VerdictVerified
	case credibility <= h.disputedThreshold:
		verdict = model.VerdictDisputed
	}

	found := 0
	if method != model.MethodSocialMedia {
		found = int(credibility * 5)
	}

	result, err := model.NewVerificationResult(method, credibility, verdict, base.confidence, found)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
