package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
)

const judgeSystem = `You assess factual claims against one category of evidence source.
Reply with a single JSON object and nothing else.`

var methodDescriptions = map[model.Method]string{
	model.MethodNews:         "established news outlets such as reuters.com, apnews.com, bbc.com, npr.org",
	model.MethodGovernment:   "official government and public-health bodies such as who.int, cdc.gov, fda.gov, gov.uk",
	model.MethodAcademic:     "peer-reviewed research indexed by pubmed.ncbi.nlm.nih.gov, arxiv.org, scholar.google.com",
	model.MethodFactCheckers: "fact-checking organizations such as snopes.com, factcheck.org, politifact.com, fullfact.org",
	model.MethodSocialMedia:  "social media discussion and virality signals",
}

// Judge verifies claims with an LLM. It satisfies the verifier's oracle contract.
type Judge struct {
	provider Provider
}

// NewJudge wraps a provider as a verification oracle
func NewJudge(provider Provider) *Judge {
	return &Judge{provider: provider}
}

// Name returns the oracle name
func (j *Judge) Name() string {
	return "llm:" + j.provider.Name()
}

// BuildJudgePrompt constructs the assessment prompt for one claim and method
func BuildJudgePrompt(claimText string, method model.Method) string {
	return fmt.Sprintf(`Claim: %q

Evidence category: %s (%s).

Based only on what sources in this category are known to report, return:
{"verdict": "verified" | "disputed" | "uncertain",
 "credibility": number between 0 and 1 (how well the category supports the claim),
 "confidence": number between 0 and 1,
 "sources_found": integer,
 "sources": [list of source URLs, may be empty]}

If the category has no coverage of the claim, answer "uncertain" with credibility 0.5.`,
		claimText, method, methodDescriptions[method])
}

// Verify asks the provider for a verdict on claimText from the perspective of method
func (j *Judge) Verify(ctx context.Context, claimText string, method model.Method) (*model.VerificationResult, error) {
	resp, err := j.provider.Complete(ctx, Request{
		System: judgeSystem,
		Prompt: BuildJudgePrompt(claimText, method),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "llm: judge %s", method)
	}

	return ParseJudgment(resp.Text, method)
}

type judgment struct {
	Verdict      string   `json:"verdict"`
	Credibility  *float64 `json:"credibility"`
	Confidence   *float64 `json:"confidence"`
	SourcesFound *int     `json:"sources_found"`
	Sources      []string `json:"sources"`
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseJudgment extracts and validates the JSON verdict from a reply.
// Replies wrapped in prose or code fences are accepted.
func ParseJudgment(text string, method model.Method) (*model.VerificationResult, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return nil, eris.New("llm: no JSON object in reply")
	}

	var j judgment
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, eris.Wrap(err, "llm: decode judgment")
	}
	if j.Credibility == nil {
		return nil, eris.New("llm: judgment missing credibility")
	}

	confidence := 0.5
	if j.Confidence != nil {
		confidence = *j.Confidence
	}

	found := len(extractURLs(strings.Join(j.Sources, " ")))
	if j.SourcesFound != nil {
		found = *j.SourcesFound
	}

	result, err := model.NewVerificationResult(method, *j.Credibility,
		model.Verdict(strings.ToLower(strings.TrimSpace(j.Verdict))), confidence, found)
	if err != nil {
		return nil, eris.Wrap(err, "llm: invalid judgment")
	}
	return &result, nil
}

// extractURLs extracts unique http(s) URLs from text
func extractURLs(text string) []string {
	urlPattern := regexp.MustCompile(`https?://[^\s\)"]+`)
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}

	return unique
}
