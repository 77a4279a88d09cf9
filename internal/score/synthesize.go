package score

import (
	"github.com/ppiankov/claimwatch/internal/model"
)

// Synthesize combines the per-method results for one claim.
//
//	score      = Σ(credibility × weight) / Σ(weight)
//	confidence = agreementRate × 0.8 + 0.2
//
// where agreementRate is the share of results holding the most common verdict.
// An empty result list yields the neutral {0.5, uncertain, 0.1}.
func (s *Scorer) Synthesize(claimID string, results []model.VerificationResult) model.ClaimAssessment {
	if len(results) == 0 {
		return model.ClaimAssessment{
			ClaimID:              claimID,
			Score:                0.5,
			Verdict:              model.VerdictUncertain,
			Confidence:           0.1,
			SupportingSources:    []model.Method{},
			ContradictingSources: []model.Method{},
		}
	}

	var weighted, totalWeight float64
	counts := make(map[model.Verdict]int, 3)
	supporting := model.MethodSet{}
	contradicting := model.MethodSet{}

	for _, r := range results {
		w := s.cfg.MethodWeights[r.Method]
		weighted += r.Credibility * w
		totalWeight += w
		counts[r.Verdict]++

		switch r.Verdict {
		case model.VerdictVerified:
			supporting.Add(r.Method)
		case model.VerdictDisputed:
			contradicting.Add(r.Method)
		}
	}

	var score float64
	if totalWeight > 0 {
		score = weighted / totalWeight
	} else {
		for _, r := range results {
			score += r.Credibility
		}
		score /= float64(len(results))
	}
	score = model.Clamp01(stable(score))

	// Ties share the same count, so the chosen mode never changes the rate
	modeCount := 0
	for _, n := range counts {
		if n > modeCount {
			modeCount = n
		}
	}
	agreement := float64(modeCount) / float64(len(results))

	return model.ClaimAssessment{
		ClaimID:              claimID,
		Score:                score,
		Verdict:              s.verdictFor(score),
		Confidence:           model.Clamp01(stable(agreement*0.8 + 0.2)),
		SupportingSources:    supporting.Sorted(),
		ContradictingSources: contradicting.Sorted(),
	}
}
