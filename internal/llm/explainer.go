package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Explainer produces an optional plain-language explanation of a report.
// It never changes scores or verdicts.
type Explainer struct {
	provider Provider
}

// NewExplainer creates an explainer; a disabled provider yields a no-op explainer
func NewExplainer(config Config) (*Explainer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Explainer{provider: provider}, nil
}

// IsEnabled reports whether a provider is configured
func (e *Explainer) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the configured provider name or ""
func (e *Explainer) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Explain returns nil without error when disabled
func (e *Explainer) Explain(ctx context.Context, report model.Report) (*model.Explanation, error) {
	if !e.IsEnabled() {
		return nil, nil
	}

	resp, err := e.provider.Complete(ctx, Request{
		System: "You explain fact-check results to a general audience. Do not add new facts or change any verdict.",
		Prompt: BuildExplainPrompt(report),
	})
	if err != nil {
		zap.L().Warn("llm: explanation failed", zap.String("provider", e.provider.Name()), zap.Error(err))
		return nil, eris.Wrap(err, "llm: explain report")
	}

	return &model.Explanation{
		Provider: e.provider.Name(),
		Model:    resp.Model,
		Text:     resp.Text,
	}, nil
}

// BuildExplainPrompt renders the report facts the explanation may use
func BuildExplainPrompt(report model.Report) string {
	var b strings.Builder

	a := report.Assessment
	fmt.Fprintf(&b, "Overall verdict: %s (score %.2f, confidence %.2f, misinformation: %v)\n",
		a.Verdict, a.Score, a.Confidence, a.IsMisinformation)
	fmt.Fprintf(&b, "%s\n\nClaims:\n", report.Summary)

	byID := make(map[string]model.ClaimAssessment, len(a.ClaimAssessments))
	for _, ca := range a.ClaimAssessments {
		byID[ca.ClaimID] = ca
	}
	for i, c := range report.Claims {
		if i >= 10 {
			break
		}
		ca := byID[c.ID]
		fmt.Fprintf(&b, "- %q: %s (supporting: %v, contradicting: %v)\n",
			c.Text, ca.Verdict, ca.SupportingSources, ca.ContradictingSources)
	}

	b.WriteString("\nWrite 3-4 sentences explaining the result. Mention uncertainty where evidence is thin.")
	return b.String()
}
