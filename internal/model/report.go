package model

import (
	"fmt"
	"time"
)

// Status is the user-visible outcome of a check
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusNoCheckableClaims Status = "no_checkable_claims"
	StatusEmptyContent      Status = "empty_content"
	StatusError             Status = "error"
)

// Report represents the complete result of checking one content item
type Report struct {
	Status      Status      `json:"status"`
	ErrorKind   ErrorKind   `json:"error_kind,omitempty"`
	Error       string      `json:"error,omitempty"`
	ContentType ContentType `json:"content_type"`
	SourceURL   string      `json:"source_url,omitempty"` // Set when content was fetched from a URL
	Subject     string      `json:"subject,omitempty"`
	CheckedAt   time.Time   `json:"checked_at"`

	Claims     []Claim           `json:"claims"`
	Assessment OverallAssessment `json:"assessment"`
	Summary    string            `json:"summary"`

	QueryID string `json:"query_id,omitempty"` // Set when the content was handed to the monitor

	Explanation *Explanation `json:"explanation,omitempty"` // Optional LLM explanation (never affects score)
}

// Explanation contains an optional LLM-generated narrative
type Explanation struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Text     string `json:"text"`
}

// Summarize renders the one-line summary of verdict counts
func Summarize(assessments []ClaimAssessment) string {
	var verified, disputed, uncertain int
	for _, a := range assessments {
		switch a.Verdict {
		case VerdictVerified:
			verified++
		case VerdictDisputed:
			disputed++
		default:
			uncertain++
		}
	}
	return fmt.Sprintf("Fact-checked %d claims: %d verified, %d disputed, %d uncertain.",
		len(assessments), verified, disputed, uncertain)
}
