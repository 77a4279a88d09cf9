package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimwatch/internal/alert"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type countingSender struct {
	mu    sync.Mutex
	count int
}

func (s *countingSender) Send(ctx context.Context, ch model.Channel, userID string, a model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func newTestMonitor(t *testing.T, cfg model.MonitorConfig) (*Monitor, *store.MemoryStore, *countingSender) {
	t.Helper()
	st := store.NewMemory()
	sender := &countingSender{}
	d := alert.NewDispatcher(st, sender, time.Second)
	d.SetClock(func() time.Time { return t0 })
	m := NewMonitor(st, d, cfg)
	m.SetClock(func() time.Time { return t0 })
	return m, st, sender
}

func seedQuery(t *testing.T, st store.Store, q model.UnsolvedQuery) model.UnsolvedQuery {
	t.Helper()
	if q.Status == "" {
		q.Status = model.StatusPending
	}
	if q.StoredAt.IsZero() {
		q.StoredAt = t0
	}
	created, err := st.CreateQuery(context.Background(), q)
	require.NoError(t, err)
	return *created
}

func TestDeterminePriority(t *testing.T) {
	tests := []struct {
		name    string
		content string
		urgency float64
		want    model.Priority
	}{
		{"health with falsity", "The vaccine is a hoax", 0, model.PriorityCritical},
		{"urgent with falsity", "Breaking: the election was rigged", 0, model.PriorityCritical},
		{"health only", "New vaccine approved for children", 0, model.PriorityHigh},
		{"politics", "The minister announced a new policy", 0, model.PriorityHigh},
		{"sensitive", "Refugee numbers doubled this year", 0, model.PriorityHigh},
		{"plain follows urgency", "The bridge opened on Monday", 0.95, model.PriorityCritical},
		{"plain low urgency", "The bridge opened on Monday", 0.1, model.PriorityLow},
		{"plain no hint", "The bridge opened on Monday", 0, model.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeterminePriority(tt.content, tt.urgency))
		})
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("The vaccine spreads through 5G towers, vaccine makers say")
	assert.Equal(t, []string{"vaccine", "spreads", "5g", "towers", "makers"}, got)

	long := "alpha1 bravo charlie delta1 echoes foxtrot golfer hotel1 indigo juliet kilos1 limas1"
	assert.Len(t, Keywords(long), 10)
}

func TestMonitoringSources(t *testing.T) {
	base := MonitoringSources("The bridge opened")
	assert.Equal(t, []string{"news_feeds", "fact_check_sites", "government_updates"}, base)

	health := MonitoringSources("A new vaccine study")
	assert.Contains(t, health, "who_updates")
	assert.Contains(t, health, "research_databases")
	assert.NotContains(t, health, "election_data")
}

func TestResolutionScore(t *testing.T) {
	q := model.UnsolvedQuery{Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}}

	partial := ResolutionScore(q, "fact-check: vaccine claim debunked")
	assert.InDelta(t, 0.65, partial, 1e-9)

	full := ResolutionScore(q, "Fact-check: vaccine 5g claim debunked")
	assert.InDelta(t, 1.0, full, 1e-9)

	assert.Zero(t, ResolutionScore(q, "Weather is sunny"))
}

func TestRescan_BelowThresholdStaysPending(t *testing.T) {
	m, st, sender := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}, Priority: model.PriorityMedium})

	ids, err := m.Rescan(context.Background(), []ObservedContent{{Content: "fact-check: vaccine claim debunked"}})
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := st.GetQuery(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 1, got.CheckCount)
	assert.Zero(t, sender.count)
}

func TestRescan_AboveThresholdAlertsOnce(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{UserID: "alice", Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}, Priority: model.PriorityHigh})
	require.NoError(t, m.Subscribe(ctx, q.ID, "alice", []model.Channel{model.ChannelEmail}))

	items := []ObservedContent{
		{Content: "sports results", Source: "feed-a"},
		{Content: "Fact-check: vaccine 5g claim debunked", Source: "feed-b", Kind: model.MethodFactCheckers},
	}
	ids, err := m.Rescan(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, []string{q.ID}, ids)

	got, err := st.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPotentiallyResolved, got.Status)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, "feed-b", got.Resolution.Source)
	assert.Equal(t, model.MethodFactCheckers, got.Resolution.SourceKind)
	assert.Greater(t, got.Resolution.Score, 0.7)

	// The same content again must not raise a second alert
	ids, err = m.Rescan(ctx, items)
	require.NoError(t, err)
	assert.Empty(t, ids)

	alerts, err := st.Alerts(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertPotentiallyResolved, alerts[0].Type)
}

func TestRescan_ConcurrentCallersResolveOnce(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}})

	items := []ObservedContent{{Content: "Fact-check: vaccine 5g claim debunked"}}
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := m.Rescan(ctx, items)
			assert.NoError(t, err)
			mu.Lock()
			total += len(ids)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
	alerts, err := st.Alerts(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}})

	_, err := m.Resolve(ctx, q.ID)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition), "pending cannot jump to resolved")

	_, err = m.Rescan(ctx, []ObservedContent{{Content: "Fact-check: vaccine 5g claim debunked"}})
	require.NoError(t, err)

	got, err := m.Resolve(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(t0))

	_, err = m.Resolve(ctx, q.ID)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition), "resolved is terminal")

	_, err = m.Resolve(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrQueryNotFound))
}

func TestOverdue(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "critical claim", Priority: model.PriorityCritical})
	seedQuery(t, st, model.UnsolvedQuery{Content: "medium claim", Priority: model.PriorityMedium})

	m.SetClock(func() time.Time { return t0.Add(119 * time.Minute) })
	overdue, err := m.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	m.SetClock(func() time.Time { return t0.Add(121 * time.Minute) })
	overdue, err = m.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, q.ID, overdue[0].Query.ID)
	assert.Equal(t, 2*time.Hour, overdue[0].SLA)
	assert.Equal(t, 121*time.Minute, overdue[0].Elapsed)
}

func TestStoreUnsolved(t *testing.T) {
	ctx := context.Background()

	t.Run("empty content", func(t *testing.T) {
		m, _, _ := newTestMonitor(t, model.MonitorConfig{})
		_, err := m.StoreUnsolved(ctx, UnsolvedInput{Content: "   "})
		assert.True(t, errors.Is(err, model.ErrEmptyContent))
	})

	t.Run("critical raises intake alert", func(t *testing.T) {
		m, st, sender := newTestMonitor(t, model.MonitorConfig{})
		q, err := m.StoreUnsolved(ctx, UnsolvedInput{Content: "The vaccine is a hoax", UserID: "alice"})
		require.NoError(t, err)

		assert.NotEmpty(t, q.ID)
		assert.Equal(t, model.PriorityCritical, q.Priority)
		assert.Equal(t, model.StatusPending, q.Status)
		assert.Equal(t, model.ContentText, q.ContentType)
		assert.Contains(t, q.Keywords, "vaccine")
		assert.Contains(t, q.MonitoringSources, "who_updates")

		subs, err := st.Subscriptions(ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.ElementsMatch(t, alert.ChannelsFor(model.PriorityCritical), subs[0].Channels)

		alerts, err := st.Alerts(ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, model.AlertCriticalIntake, alerts[0].Type)
		assert.Equal(t, 4, sender.count)
	})

	t.Run("non critical stays quiet", func(t *testing.T) {
		m, st, sender := newTestMonitor(t, model.MonitorConfig{})
		q, err := m.StoreUnsolved(ctx, UnsolvedInput{Content: "The bridge opened on Monday"})
		require.NoError(t, err)
		assert.Equal(t, model.PriorityMedium, q.Priority)

		subs, err := st.Subscriptions(ctx, q.ID)
		require.NoError(t, err)
		assert.Empty(t, subs)
		assert.Zero(t, sender.count)
	})
}

func TestSubscribe_Invalid(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "claim"})

	err := m.Subscribe(ctx, q.ID, "bob", []model.Channel{"pigeon"})
	assert.True(t, errors.Is(err, model.ErrInvalidSubscription))

	err = m.Subscribe(ctx, "missing", "bob", []model.Channel{model.ChannelEmail})
	assert.True(t, errors.Is(err, model.ErrQueryNotFound))
}

func TestSubscribe_KeepsIntakeSubscription(t *testing.T) {
	ctx := context.Background()
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q, err := m.StoreUnsolved(ctx, UnsolvedInput{Content: "The vaccine is a hoax", UserID: "alice"})
	require.NoError(t, err)

	err = m.Subscribe(ctx, q.ID, "alice", []model.Channel{model.ChannelInApp})
	assert.True(t, errors.Is(err, model.ErrInvalidSubscription))

	subs, err := st.Subscriptions(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.ElementsMatch(t, alert.ChannelsFor(model.PriorityCritical), subs[0].Channels)
}

type staticSource struct {
	items []ObservedContent
	err   error
	polls int
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Poll(ctx context.Context) ([]ObservedContent, error) {
	s.polls++
	return s.items, s.err
}

func TestTick_PollsSourcesIntoQueue(t *testing.T) {
	m, _, _ := newTestMonitor(t, model.MonitorConfig{})
	good := &staticSource{items: []ObservedContent{{Content: "a"}, {Content: "b"}}}
	bad := &staticSource{err: errors.New("feed down")}
	m.AddSource(bad)
	m.AddSource(good)

	m.tick(context.Background())

	assert.Equal(t, 1, good.polls)
	assert.Equal(t, 1, bad.polls)
	assert.Len(t, m.pending(), 2)
}

func TestRun_ProcessesObservedContent(t *testing.T) {
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.NoError(t, m.Observe(context.Background(), ObservedContent{Content: "Fact-check: vaccine 5g claim debunked"}))

	require.Eventually(t, func() bool {
		got, err := st.GetQuery(context.Background(), q.ID)
		return err == nil && got.Status == model.StatusPotentiallyResolved
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_DrainsQueueOnCancel(t *testing.T) {
	m, st, _ := newTestMonitor(t, model.MonitorConfig{})
	q := seedQuery(t, st, model.UnsolvedQuery{Content: "vaccine 5g", Keywords: []string{"vaccine", "5g"}})

	require.NoError(t, m.Observe(context.Background(), ObservedContent{Content: "Fact-check: vaccine 5g claim debunked"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))

	got, err := st.GetQuery(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPotentiallyResolved, got.Status)
}

func TestRun_BadSchedule(t *testing.T) {
	m, _, _ := newTestMonitor(t, model.MonitorConfig{})
	m.cfg.Schedule = "not a schedule"
	err := m.Run(context.Background())
	assert.Error(t, err)
}
