package score

import (
	"regexp"
	"sort"

	"github.com/ppiankov/claimwatch/internal/model"
)

// RedFlag is a family of manipulative or unsubstantiated phrasing
type RedFlag string

const (
	RedFlagConspiracy      RedFlag = "conspiracy"
	RedFlagFalseAuthority  RedFlag = "false_authority"
	RedFlagUnsubstantiated RedFlag = "unsubstantiated_statistic"
)

var redFlagPatterns = []struct {
	flag    RedFlag
	pattern *regexp.Regexp
}{
	{RedFlagConspiracy, regexp.MustCompile(`(?i)(they don'?t want you to know|cover[- ]?up|hidden truth|secret (plan|agenda)|wake up|big pharma|mainstream media (won'?t|will not|refuses))`)},
	{RedFlagFalseAuthority, regexp.MustCompile(`(?i)(doctors hate|experts (agree|say)|scientists (agree|say) that|insiders? (say|reveal)|a (doctor|nurse|scientist) (told|said))`)},
	{RedFlagUnsubstantiated, regexp.MustCompile(`(?i)(100\s*(%|percent)\s*(effective|safe|proven|guaranteed)|everyone knows|studies (prove|have proven)|miracle|guaranteed to)`)},
}

// DetectRedFlags returns the red-flag families present in text
func DetectRedFlags(text string) []RedFlag {
	var flags []RedFlag
	for _, rf := range redFlagPatterns {
		if rf.pattern.MatchString(text) {
			flags = append(flags, rf.flag)
		}
	}
	return flags
}

// Priority computes a claim's verification priority:
// 0.4*base + 0.3*typeWeight + 0.2*urgency + 0.1 per red flag, clamped to [0,1]
func (s *Scorer) Priority(claim model.Claim, urgency float64) float64 {
	typeWeight, ok := s.cfg.TypeWeights[claim.Type]
	if !ok {
		typeWeight = s.cfg.TypeWeights[model.ClaimTypeGeneral]
	}

	p := claim.BaseConfidence*0.4 +
		typeWeight*0.3 +
		model.Clamp01(urgency)*0.2 +
		float64(len(DetectRedFlags(claim.Text)))*0.1

	return model.Clamp01(p)
}

// Rank drops claims below the minimum confidence, assigns priority,
// and orders the rest by priority, highest first
func (s *Scorer) Rank(claims []model.Claim, urgency float64) []model.Claim {
	ranked := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		if c.BaseConfidence < s.cfg.MinClaimConfidence {
			continue
		}
		c.Priority = s.Priority(c, urgency)
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority > ranked[j].Priority
	})

	return ranked
}
