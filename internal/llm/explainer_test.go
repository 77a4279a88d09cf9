package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/claimwatch/internal/model"
)

func testReport() model.Report {
	return model.Report{
		Status: model.StatusCompleted,
		Claims: []model.Claim{{ID: "claim-1", Text: "The vaccine is 95% effective"}},
		Assessment: model.OverallAssessment{
			Verdict:    model.VerdictVerified,
			Score:      0.8,
			Confidence: 1,
			ClaimAssessments: []model.ClaimAssessment{
				{ClaimID: "claim-1", Verdict: model.VerdictVerified, SupportingSources: []model.Method{model.MethodGovernment}},
			},
		},
		Summary: "Fact-checked 1 claims: 1 verified, 0 disputed, 0 uncertain.",
	}
}

func TestNewExplainer_Disabled(t *testing.T) {
	explainer, err := NewExplainer(Config{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if explainer.IsEnabled() {
		t.Error("Expected explainer to be disabled")
	}
	if explainer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	exp, err := explainer.Explain(context.Background(), testReport())
	if err != nil || exp != nil {
		t.Errorf("Expected nil explanation without error, got %v %v", exp, err)
	}
}

func TestExplainer_Explain(t *testing.T) {
	provider := &MockProvider{name: "mock", text: "The claim is supported by government sources."}
	explainer := &Explainer{provider: provider}

	exp, err := explainer.Explain(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if exp.Provider != "mock" || exp.Model != "mock-model" {
		t.Errorf("Unexpected explanation metadata %+v", exp)
	}
	if !strings.Contains(provider.lastReq.Prompt, "95% effective") {
		t.Error("Expected claim text in prompt")
	}
	if !strings.Contains(provider.lastReq.Prompt, "government") {
		t.Error("Expected supporting sources in prompt")
	}
}

func TestExplainer_Explain_Error(t *testing.T) {
	explainer := &Explainer{provider: &MockProvider{name: "mock", err: errors.New("boom")}}

	if _, err := explainer.Explain(context.Background(), testReport()); err == nil {
		t.Fatal("Expected error")
	}
}
