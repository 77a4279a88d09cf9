package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimwatch/internal/model"
)

const rssOne = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Checks</title>
<item>
  <title>Fact-check: vaccine 5G claim debunked</title>
  <link>https://www.factcheck.org/2026/03/vaccine-5g/</link>
  <guid>fc-1</guid>
  <description>&lt;p&gt;No evidence links &lt;b&gt;vaccines&lt;/b&gt; to 5G.&lt;/p&gt;</description>
</item>
<item>
  <title>Viral post about towers</title>
  <link>https://twitter.com/someone/status/1</link>
  <guid>tw-1</guid>
  <description>Thread</description>
</item>
</channel></rss>`

const rssTwo = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Checks</title>
<item>
  <title>Fact-check: vaccine 5G claim debunked</title>
  <link>https://www.factcheck.org/2026/03/vaccine-5g/</link>
  <guid>fc-1</guid>
  <description>No evidence.</description>
</item>
<item>
  <title>Officials confirm outage cause</title>
  <link>https://www.reuters.com/world/outage</link>
  <guid>rt-1</guid>
</item>
</channel></rss>`

func TestPoller_ReturnsOnlyNewItems(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(rssOne))
			return
		}
		_, _ = w.Write([]byte(rssTwo))
	}))
	defer server.Close()

	p := NewPoller(server.URL, nil, 10)
	assert.Equal(t, server.URL, p.Name())

	first, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1, "social media item is dropped")
	assert.Equal(t, "Fact-check: vaccine 5G claim debunked. No evidence links vaccines to 5G.", first[0].Content)
	assert.Equal(t, "https://www.factcheck.org/2026/03/vaccine-5g/", first[0].Source)
	assert.Equal(t, model.MethodFactCheckers, first[0].Kind)

	second, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Officials confirm outage cause", second[0].Content)
	assert.Equal(t, model.MethodNews, second[0].Kind)
}

func TestPoller_MaxItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssTwo))
	}))
	defer server.Close()

	items, err := NewPoller(server.URL, nil, 1).Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestPoller_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewPoller(server.URL, nil, 10).Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feeds: fetch")
}

func TestNewFromConfig(t *testing.T) {
	sources := NewFromConfig(
		model.FeedsConfig{URLs: []string{"https://a.example/rss", "https://b.example/atom"}, MaxItems: 5},
		model.HTTPConfig{UserAgent: "claimwatch-test"},
	)
	require.Len(t, sources, 2)
	assert.Equal(t, "https://b.example/atom", sources[1].Name())
	assert.Equal(t, "claimwatch-test", sources[0].(*Poller).parser.UserAgent)
}
