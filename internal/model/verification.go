package model

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Method is a verification source type queried for a claim
type Method string

const (
	MethodNews         Method = "news"
	MethodGovernment   Method = "government"
	MethodAcademic     Method = "academic"
	MethodFactCheckers Method = "fact_checkers"
	MethodSocialMedia  Method = "social_media"
)

// AllMethods lists every method in canonical order
var AllMethods = []Method{MethodNews, MethodGovernment, MethodAcademic, MethodFactCheckers, MethodSocialMedia}

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	for _, known := range AllMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Verdict is the outcome assigned to a claim or a whole content item
type Verdict string

const (
	VerdictVerified  Verdict = "verified"
	VerdictDisputed  Verdict = "disputed"
	VerdictUncertain Verdict = "uncertain"
)

// Valid reports whether v is a known verdict
func (v Verdict) Valid() bool {
	switch v {
	case VerdictVerified, VerdictDisputed, VerdictUncertain:
		return true
	}
	return false
}

// VerificationResult is one oracle answer for a (claim, method) pair
type VerificationResult struct {
	Method       Method  `json:"method"`
	Credibility  float64 `json:"credibility"`
	Verdict      Verdict `json:"verdict"`
	Confidence   float64 `json:"confidence"`
	SourcesFound int     `json:"sources_found"`
}

// Validate checks ranges and enumerations
func (r VerificationResult) Validate() error {
	if !r.Method.Valid() {
		return eris.Errorf("model: unknown method %q", r.Method)
	}
	if !r.Verdict.Valid() {
		return eris.Errorf("model: unknown verdict %q", r.Verdict)
	}
	if !InUnit(r.Credibility) {
		return eris.Errorf("model: credibility %.3f outside [0,1]", r.Credibility)
	}
	if !InUnit(r.Confidence) {
		return eris.Errorf("model: confidence %.3f outside [0,1]", r.Confidence)
	}
	if r.SourcesFound < 0 {
		return eris.Errorf("model: negative sources found %d", r.SourcesFound)
	}
	return nil
}

// NewVerificationResult builds a validated result
func NewVerificationResult(method Method, credibility float64, verdict Verdict, confidence float64, sourcesFound int) (VerificationResult, error) {
	r := VerificationResult{
		Method:       method,
		Credibility:  credibility,
		Verdict:      verdict,
		Confidence:   confidence,
		SourcesFound: sourcesFound,
	}
	if err := r.Validate(); err != nil {
		return VerificationResult{}, err
	}
	return r, nil
}

// ClaimAssessment is the synthesized verdict for a single claim
type ClaimAssessment struct {
	ClaimID              string   `json:"claim_id"`
	Score                float64  `json:"score"`
	Verdict              Verdict  `json:"verdict"`
	Confidence           float64  `json:"confidence"`
	Priority             float64  `json:"priority,omitempty"`
	SupportingSources    []Method `json:"supporting_sources"`
	ContradictingSources []Method `json:"contradicting_sources"`
}

// OverallAssessment is the verdict for a whole content item
type OverallAssessment struct {
	Verdict          Verdict           `json:"verdict"`
	Score            float64           `json:"score"`
	Confidence       float64           `json:"confidence"`
	IsMisinformation bool              `json:"is_misinformation"`
	SourcesUsed      []Method          `json:"sources_used"`
	ClaimAssessments []ClaimAssessment `json:"claim_assessments"`
}

// MethodSet accumulates methods without duplicates
type MethodSet map[Method]struct{}

// Add inserts methods into the set
func (s MethodSet) Add(methods ...Method) {
	for _, m := range methods {
		s[m] = struct{}{}
	}
}

// Sorted returns the members in canonical method order, never nil
func (s MethodSet) Sorted() []Method {
	out := make([]Method, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return methodRank(out[i]) < methodRank(out[j])
	})
	return out
}

func methodRank(m Method) int {
	for i, known := range AllMethods {
		if m == known {
			return i
		}
	}
	return len(AllMethods)
}
