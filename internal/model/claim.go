package model

import (
	"github.com/rotisserie/eris"
)

// Claim represents an independently checkable factual statement extracted from content
type Claim struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`                // The claim text itself
	Type           ClaimType `json:"type"`                // Topic family used for weighting and method selection
	BaseConfidence float64   `json:"base_confidence"`     // Fraction of claim-indicator patterns matched
	Priority       float64   `json:"priority"`            // Verification priority, set by the ranker
	Heuristic      string    `json:"heuristic,omitempty"` // Which extraction rule matched (e.g., "pattern:percentage")
	Sentence       int       `json:"sentence,omitempty"`  // Segment index in source (0-based)
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeScientific  ClaimType = "scientific"
	ClaimTypeMedical     ClaimType = "medical"
	ClaimTypePolitical   ClaimType = "political"
	ClaimTypeStatistical ClaimType = "statistical"
	ClaimTypeGeneral     ClaimType = "general"
)

// Valid reports whether t is a known claim type
func (t ClaimType) Valid() bool {
	switch t {
	case ClaimTypeScientific, ClaimTypeMedical, ClaimTypePolitical, ClaimTypeStatistical, ClaimTypeGeneral:
		return true
	}
	return false
}

// NewClaim validates and builds a claim. Priority starts at zero until ranked.
func NewClaim(id, text string, claimType ClaimType, baseConfidence float64) (Claim, error) {
	if text == "" {
		return Claim{}, eris.New("model: claim text is empty")
	}
	if !claimType.Valid() {
		return Claim{}, eris.Errorf("model: unknown claim type %q", claimType)
	}
	if !InUnit(baseConfidence) {
		return Claim{}, eris.Errorf("model: base confidence %.3f outside [0,1]", baseConfidence)
	}
	return Claim{ID: id, Text: text, Type: claimType, BaseConfidence: baseConfidence}, nil
}

// ContentType identifies the form of submitted content
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentHTML  ContentType = "html"
	ContentURL   ContentType = "url"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
)

// Valid reports whether c is a known content type
func (c ContentType) Valid() bool {
	switch c {
	case ContentText, ContentHTML, ContentURL, ContentImage, ContentVideo, ContentAudio:
		return true
	}
	return false
}

// InUnit reports whether v lies in [0,1]
func InUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Clamp01 limits v to [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
