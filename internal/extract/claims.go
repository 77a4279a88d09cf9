package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Input is the content handed to the extractor
type Input struct {
	Content     string
	ContentType model.ContentType
	UrgencyHint float64
	Claims      []string // Pre-extracted claims from an upstream adapter
}

type indicator struct {
	name    string
	pattern *regexp.Regexp
}

// ClaimExtractor extracts candidate claims from text or HTML
type ClaimExtractor struct {
	indicators     []indicator
	opinionMarkers []string
	minLength      int
	maxLength      int
	maxClaims      int
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(cfg model.ExtractionConfig) *ClaimExtractor {
	if cfg.MinSegmentLength <= 0 {
		cfg.MinSegmentLength = 15
	}
	if cfg.MaxSegmentLength <= 0 {
		cfg.MaxSegmentLength = 500
	}
	if cfg.MaxClaims <= 0 {
		cfg.MaxClaims = 10
	}

	return &ClaimExtractor{
		indicators: []indicator{
			{"percentage", regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(%|percent\b)`)},
			{"quantity", regexp.MustCompile(`(?i)\b\d[\d,.]*\s*(thousand|million|billion|people|cases|deaths|patients|years|days|times|mg|kg|km|miles|dollars)\b`)},
			{"according_to", regexp.MustCompile(`(?i)\baccording to\b`)},
			{"attribution", regexp.MustCompile(`(?i)\b(scientists?|researchers?|experts?|doctors?|officials?|studies|study|research|report|data)\s+(discover(s|ed)?|found|finds?|shows?|showed|proves?|proved|confirms?|confirmed|reveals?|revealed|says?|said|claims?|claimed)\b`)},
		},
		opinionMarkers: []string{
			"i think", "in my opinion", "i believe", "i feel", "personally", "it seems to me",
		},
		minLength: cfg.MinSegmentLength,
		maxLength: cfg.MaxSegmentLength,
		maxClaims: cfg.MaxClaims,
	}
}

type candidate struct {
	claim model.Claim
	order int
}

// Extract extracts claims ordered by base confidence, highest first.
// Content without usable text yields ErrEmptyContent and no claims.
func (e *ClaimExtractor) Extract(in Input) ([]model.Claim, error) {
	var segments []string
	if len(in.Claims) > 0 {
		for _, c := range in.Claims {
			if c = strings.TrimSpace(c); c != "" {
				segments = append(segments, c)
			}
		}
	} else {
		text := in.Content
		if in.ContentType == model.ContentHTML {
			doc, err := html.Parse(strings.NewReader(in.Content))
			if err != nil {
				return nil, eris.Wrap(err, "extract: parse html")
			}
			text = extractVisibleText(doc)
		}
		segments = splitSentences(text, e.minLength, e.maxLength)
	}

	if len(segments) == 0 {
		return nil, eris.Wrap(model.ErrEmptyContent, "extract: no usable segments")
	}

	var scored, unscored []candidate
	for i, segment := range segments {
		conf, heuristic := e.score(segment)
		c := candidate{
			order: i,
			claim: model.Claim{
				ID:             fmt.Sprintf("claim-%d", i+1),
				Text:           segment,
				Type:           ClassifyType(segment),
				BaseConfidence: conf,
				Heuristic:      heuristic,
				Sentence:       i,
			},
		}
		if conf > 0 {
			scored = append(scored, c)
		} else {
			unscored = append(unscored, c)
		}
	}

	// Zero-score segments only survive when nothing else matched
	if len(scored) == 0 {
		scored = unscored
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].claim.BaseConfidence > scored[j].claim.BaseConfidence
	})

	claims := make([]model.Claim, 0, len(scored))
	for _, c := range scored {
		claims = append(claims, c.claim)
	}
	claims = dedupeClaims(claims)
	if len(claims) > e.maxClaims {
		claims = claims[:e.maxClaims]
	}

	return claims, nil
}

// score returns the matched-indicator fraction less the opinion penalty
func (e *ClaimExtractor) score(segment string) (float64, string) {
	matched := 0
	var names []string
	for _, ind := range e.indicators {
		if ind.pattern.MatchString(segment) {
			matched++
			names = append(names, ind.name)
		}
	}

	conf := float64(matched) / float64(len(e.indicators))

	lower := strings.ToLower(segment)
	for _, marker := range e.opinionMarkers {
		if strings.Contains(lower, marker) {
			conf -= 0.2
		}
	}

	heuristic := ""
	if len(names) > 0 {
		heuristic = "pattern:" + strings.Join(names, "+")
	}
	return model.Clamp01(conf), heuristic
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// splitSentences splits text on terminal punctuation and line breaks,
// keeping segments whose length is within [minLen, maxLen]
func splitSentences(text string, minLen, maxLen int) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minLen && len(sentence) <= maxLen {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i := 0; i < len(text); i++ {
		b := text[i]
		if b == '\n' || b == '\r' {
			flush()
			continue
		}
		current.WriteByte(b)

		if b == '.' || b == '!' || b == '?' {
			// Only split when followed by whitespace, so "3.5" and "e.g" survive
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\t' {
				flush()
			}
		}
	}
	flush()

	return sentences
}

// dedupeClaims removes duplicate claims, keeping the first occurrence
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var unique []model.Claim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}

	return unique
}
