package score

import (
	"github.com/ppiankov/claimwatch/internal/model"
)

// Aggregate combines claim assessments into one verdict for the content.
//
// The score is priority-weighted (priority 0 counts as weight 1.0) but the
// verdict compares plain verified/disputed counts. A tie is uncertain and
// flagged as misinformation only when the weighted score is below 0.5.
func (s *Scorer) Aggregate(assessments []model.ClaimAssessment) model.OverallAssessment {
	if len(assessments) == 0 {
		return model.OverallAssessment{
			Verdict:          model.VerdictUncertain,
			Score:            0.5,
			Confidence:       0.1,
			IsMisinformation: false,
			SourcesUsed:      []model.Method{},
			ClaimAssessments: []model.ClaimAssessment{},
		}
	}

	var weighted, totalWeight, plain, confSum float64
	var verified, disputed int
	sources := model.MethodSet{}

	for _, a := range assessments {
		w := a.Priority
		if w == 0 {
			w = 1.0
		}
		weighted += a.Score * w
		totalWeight += w
		plain += a.Score
		confSum += a.Confidence

		switch a.Verdict {
		case model.VerdictVerified:
			verified++
		case model.VerdictDisputed:
			disputed++
		}

		sources.Add(a.SupportingSources...)
		sources.Add(a.ContradictingSources...)
	}

	n := float64(len(assessments))
	score := plain / n
	if totalWeight > 0 {
		score = weighted / totalWeight
	}
	score = model.Clamp01(stable(score))

	out := model.OverallAssessment{
		Score:            score,
		Confidence:       model.Clamp01(stable(confSum / n)),
		SourcesUsed:      sources.Sorted(),
		ClaimAssessments: assessments,
	}

	switch {
	case disputed > verified:
		out.Verdict = model.VerdictDisputed
		out.IsMisinformation = true
	case verified > disputed:
		out.Verdict = model.VerdictVerified
		out.IsMisinformation = false
	default:
		out.Verdict = model.VerdictUncertain
		out.IsMisinformation = score < 0.5
	}

	return out
}

// Inconclusive reports whether an assessment should be handed to the query monitor
func Inconclusive(a model.OverallAssessment, maxConfidence float64) bool {
	return a.Verdict == model.VerdictUncertain && a.Confidence < maxConfidence
}
