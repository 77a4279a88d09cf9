package query

import (
	"math"
	"regexp"
	"unicode"

	"github.com/ppiankov/claimwatch/internal/extract"
	"github.com/ppiankov/claimwatch/internal/model"
)

var (
	urgentPattern     = regexp.MustCompile(`(?i)\b(urgent|breaking|emergency|outbreak|alert|election|ballot|voting|vote)s?\b`)
	falsityPattern    = regexp.MustCompile(`(?i)(\b(fake|hoax|false|lies?|lying|rigged|fraud|scam|cover[- ]?up|conspiracy|hidden)\b|not true|they don'?t want you to know)`)
	sensitivePattern  = regexp.MustCompile(`(?i)\b(immigra\w*|religio\w*|war|terror\w*|child(ren)?|minorit\w*|refugee\w*|riot\w*|shooting)\b`)
	resolutionPattern = regexp.MustCompile(`(?i)(fact[- ]?check\w*|debunk\w*|\bfalse\b|misleading|correction|corrected|clarif\w*|retract\w*|\bhoax\b|no evidence|confirmed|verified|ruled|officials? (say|said|confirm\w*))`)
)

var stopWords = map[string]bool{
	"about": true, "after": true, "again": true, "against": true, "being": true, "below": true,
	"between": true, "could": true, "every": true, "first": true, "their": true, "there": true,
	"these": true, "thing": true, "things": true, "those": true, "through": true, "under": true,
	"until": true, "where": true, "which": true, "while": true, "would": true, "should": true,
	"people": true, "really": true, "still": true, "never": true, "always": true, "because": true,
}

// DeterminePriority classifies new unsolved content. Urgent, health or
// election content that also carries falsity language is critical,
// sensitive topics are high, and anything else follows the caller's urgency.
func DeterminePriority(content string, urgency float64) model.Priority {
	health := extract.HasTopic(content, extract.TopicHealth)
	if (health || urgentPattern.MatchString(content)) && falsityPattern.MatchString(content) {
		return model.PriorityCritical
	}
	if health || extract.HasTopic(content, extract.TopicPolitics) || sensitivePattern.MatchString(content) {
		return model.PriorityHigh
	}
	return model.PriorityFromUrgency(urgency)
}

// Keywords extracts up to 10 distinct matching terms in order of appearance:
// words of five or more letters that are not stop words, and short tokens
// carrying a digit such as "5g" or "2024"
func Keywords(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range extract.Words(content) {
		if seen[w] || !isKeyword(w) {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == 10 {
			break
		}
	}
	return out
}

func isKeyword(w string) bool {
	hasDigit := false
	for _, r := range w {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if hasDigit {
		return len(w) >= 2
	}
	return len([]rune(w)) >= 5 && !stopWords[w]
}

// MonitoringSources lists the source feeds relevant to the content's topics
func MonitoringSources(content string) []string {
	sources := []string{"news_feeds", "fact_check_sites", "government_updates"}
	if extract.HasTopic(content, extract.TopicHealth) {
		sources = append(sources, "who_updates", "cdc_updates", "medical_journals")
	}
	if extract.HasTopic(content, extract.TopicPolitics) {
		sources = append(sources, "government_sites", "election_data", "policy_updates")
	}
	if extract.HasTopic(content, extract.TopicScience) {
		sources = append(sources, "scientific_journals", "research_databases")
	}
	return sources
}

// ResolutionScore rates how likely observed content answers q:
// 0.3 for resolution vocabulary, 0.2 per shared keyword up to 0.4, and up
// to 0.3 for the share of the query's words that reappear
func ResolutionScore(q model.UnsolvedQuery, observed string) float64 {
	score := 0.0
	if resolutionPattern.MatchString(observed) {
		score += 0.3
	}

	newWords := make(map[string]bool)
	for _, w := range extract.Words(observed) {
		newWords[w] = true
	}

	overlap := 0
	for _, kw := range q.Keywords {
		if newWords[kw] {
			overlap++
		}
	}
	score += math.Min(float64(overlap)*0.2, 0.4)

	origWords := make(map[string]bool)
	for _, w := range extract.Words(q.Content) {
		origWords[w] = true
	}
	if len(origWords) > 0 {
		shared := 0
		for w := range origWords {
			if newWords[w] {
				shared++
			}
		}
		score += 0.3 * float64(shared) / float64(len(origWords))
	}

	return math.Round(model.Clamp01(score)*1e9) / 1e9
}
