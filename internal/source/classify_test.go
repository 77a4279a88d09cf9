package source

import (
	"testing"

	"github.com/ppiankov/claimwatch/internal/model"
)

func TestClassifier_Domains(t *testing.T) {
	classifier := NewClassifier(nil)

	tests := []struct {
		url      string
		expected model.Method
		desc     string
	}{
		{"https://www.reuters.com/world/story", model.MethodNews, "news with www"},
		{"https://apnews.com/article/x", model.MethodNews, "news exact"},
		{"https://www.cdc.gov/flu/index.html", model.MethodGovernment, "government listed"},
		{"https://assets.publishing.service.gov.uk/a.pdf", model.MethodGovernment, "gov.uk subdomain"},
		{"https://pubmed.ncbi.nlm.nih.gov/123456/", model.MethodAcademic, "longest match wins over nih.gov"},
		{"https://www.nih.gov/news", model.MethodGovernment, "nih.gov itself"},
		{"https://arxiv.org/abs/2401.00001", model.MethodAcademic, "arxiv"},
		{"https://www.snopes.com/fact-check/moon/", model.MethodFactCheckers, "fact checker"},
		{"https://reddit.com/r/news", model.MethodSocialMedia, "social media"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, ok := classifier.Classify(tt.url)
			if !ok || got != tt.expected {
				t.Errorf("Classify(%s) = %v,%v, want %v", tt.url, got, ok, tt.expected)
			}
		})
	}
}

func TestClassifier_PathPatterns(t *testing.T) {
	classifier := NewClassifier(nil)

	got, ok := classifier.Classify("https://localnews.example.com/fact-checks/claim-about-5g/")
	if !ok || got != model.MethodFactCheckers {
		t.Errorf("Expected fact_checkers from path, got %v,%v", got, ok)
	}
}

func TestClassifier_TLDHeuristics(t *testing.T) {
	classifier := NewClassifier(Domains{})

	tests := []struct {
		url      string
		expected model.Method
	}{
		{"https://health.state.gov/report", model.MethodGovernment},
		{"https://cs.stanford.edu/paper", model.MethodAcademic},
		{"https://www.ox.ac.uk/news", model.MethodAcademic},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := classifier.Classify(tt.url)
			if !ok || got != tt.expected {
				t.Errorf("Classify(%s) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestClassifier_Unknown(t *testing.T) {
	classifier := NewClassifier(nil)

	for _, u := range []string{"https://myblog.example.com/post", "not a url", "", "://broken"} {
		if m, ok := classifier.Classify(u); ok {
			t.Errorf("Expected no match for %q, got %v", u, m)
		}
	}
}

func TestClassifier_PortHandling(t *testing.T) {
	classifier := NewClassifier(nil)

	got, ok := classifier.Classify("https://www.bbc.com:443/news")
	if !ok || got != model.MethodNews {
		t.Errorf("Expected news ignoring port, got %v", got)
	}
}

func TestClassifier_IsCredible(t *testing.T) {
	classifier := NewClassifier(nil)

	if !classifier.IsCredible("https://www.who.int/news") {
		t.Error("Expected who.int to be credible")
	}
	if classifier.IsCredible("https://x.com/someone/status/1") {
		t.Error("Expected social media not to be credible")
	}
	if classifier.IsCredible("https://example.org") {
		t.Error("Expected unknown host not to be credible")
	}
}
