package feeds

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/query"
	"github.com/ppiankov/claimwatch/internal/source"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Poller reads an RSS/Atom feed and returns items it has not returned before
type Poller struct {
	url        string
	parser     *gofeed.Parser
	classifier *source.Classifier
	maxItems   int
	logger     *zap.Logger

	mu   sync.Mutex
	seen map[string]bool
}

// NewPoller creates a poller for feedURL. A nil classifier uses the default domain lists.
func NewPoller(feedURL string, classifier *source.Classifier, maxItems int) *Poller {
	if classifier == nil {
		classifier = source.NewClassifier(nil)
	}
	if maxItems <= 0 {
		maxItems = 50
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 30 * time.Second}

	return &Poller{
		url:        feedURL,
		parser:     parser,
		classifier: classifier,
		maxItems:   maxItems,
		logger:     zap.L().With(zap.String("component", "feeds"), zap.String("feed", feedURL)),
		seen:       make(map[string]bool),
	}
}

// NewFromConfig builds one poller per configured feed
func NewFromConfig(cfg model.FeedsConfig, httpCfg model.HTTPConfig) []query.Source {
	classifier := source.NewClassifier(nil)
	sources := make([]query.Source, 0, len(cfg.URLs))
	for _, u := range cfg.URLs {
		p := NewPoller(u, classifier, cfg.MaxItems)
		if httpCfg.UserAgent != "" {
			p.parser.UserAgent = httpCfg.UserAgent
		}
		if httpCfg.Timeout > 0 {
			p.parser.Client.Timeout = httpCfg.Timeout
		}
		sources = append(sources, p)
	}
	return sources
}

func (p *Poller) Name() string {
	return p.url
}

// Poll fetches the feed once. Items linking to social media are dropped
// since they cannot resolve a query on their own.
func (p *Poller) Poll(ctx context.Context) ([]query.ObservedContent, error) {
	feed, err := p.parser.ParseURLWithContext(p.url, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "feeds: fetch %s", p.url)
	}

	entries := feed.Items
	if len(entries) > p.maxItems {
		entries = entries[:p.maxItems]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := []query.ObservedContent{}
	for _, entry := range entries {
		id := itemID(entry)
		if p.seen[id] {
			continue
		}
		p.seen[id] = true

		kind, _ := p.classifier.Classify(entry.Link)
		if kind == model.MethodSocialMedia {
			continue
		}

		content := itemText(entry)
		if content == "" {
			continue
		}

		out = append(out, query.ObservedContent{
			Content: content,
			Source:  entry.Link,
			Kind:    kind,
		})
	}

	p.logger.Debug("feeds: polled", zap.Int("entries", len(feed.Items)), zap.Int("new", len(out)))
	return out, nil
}

// itemID is stable across polls: the GUID when present, else the link, else the title
func itemID(entry *gofeed.Item) string {
	key := entry.GUID
	if key == "" {
		key = entry.Link
	}
	if key == "" {
		key = entry.Title
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))[:16]
}

// itemText joins title and description with markup removed
func itemText(entry *gofeed.Item) string {
	body := entry.Description
	if body == "" {
		body = entry.Content
	}
	body = stripHTML(body)

	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(entry.Title); t != "" {
		parts = append(parts, t)
	}
	if body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, ". ")
}

func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
