package source

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
)

// Domains maps verification methods to credible hosts. A host matches a
// listed domain exactly or as a subdomain of it.
type Domains map[model.Method][]string

// DefaultDomains returns the built-in credible-source lists
func DefaultDomains() Domains {
	return Domains{
		model.MethodNews:         {"reuters.com", "ap.org", "apnews.com", "bbc.com", "bbc.co.uk", "npr.org", "pbs.org"},
		model.MethodGovernment:   {"who.int", "cdc.gov", "fda.gov", "nih.gov", "whitehouse.gov", "gov.uk", "europa.eu"},
		model.MethodAcademic:     {"pubmed.ncbi.nlm.nih.gov", "scholar.google.com", "arxiv.org", "doi.org", "nature.com", "thelancet.com"},
		model.MethodFactCheckers: {"snopes.com", "factcheck.org", "politifact.com", "fullfact.org", "checkyourfact.com"},
		model.MethodSocialMedia:  {"twitter.com", "x.com", "facebook.com", "reddit.com", "tiktok.com", "youtube.com"},
	}
}

// Classifier assigns a verification method to a source URL
type Classifier struct {
	domains []domainRule
	paths   []pathRule
}

type domainRule struct {
	domain string
	method model.Method
}

type pathRule struct {
	pattern *regexp.Regexp
	method  model.Method
}

// NewClassifier creates a classifier; nil domains uses DefaultDomains
func NewClassifier(domains Domains) *Classifier {
	if domains == nil {
		domains = DefaultDomains()
	}

	c := &Classifier{}

	// Longer domains first so pubmed.ncbi.nlm.nih.gov wins over nih.gov
	for _, method := range model.AllMethods {
		for _, d := range domains[method] {
			c.domains = append(c.domains, domainRule{domain: strings.ToLower(d), method: method})
		}
	}
	sortByLength(c.domains)

	c.paths = []pathRule{
		{regexp.MustCompile(`(?i)/fact-?checks?/`), model.MethodFactCheckers},
		{regexp.MustCompile(`(?i)/(doi|abs|pmc)/`), model.MethodAcademic},
	}

	return c
}

func sortByLength(rules []domainRule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && len(rules[j].domain) > len(rules[j-1].domain); j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}

// Classify returns the method for rawURL. ok is false when nothing matched.
func (c *Classifier) Classify(rawURL string) (model.Method, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", false
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	for _, rule := range c.domains {
		if host == rule.domain || strings.HasSuffix(host, "."+rule.domain) {
			return rule.method, true
		}
	}

	for _, rule := range c.paths {
		if rule.pattern.MatchString(parsed.Path) {
			return rule.method, true
		}
	}

	// Common TLDs that indicate official or academic publishers
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".gov.uk"), strings.HasSuffix(host, ".mil"):
		return model.MethodGovernment, true
	case strings.HasSuffix(host, ".edu"), strings.HasSuffix(host, ".ac.uk"):
		return model.MethodAcademic, true
	}

	return "", false
}

// IsCredible reports whether rawURL belongs to any method other than social media
func (c *Classifier) IsCredible(rawURL string) bool {
	m, ok := c.Classify(rawURL)
	return ok && m != model.MethodSocialMedia
}
