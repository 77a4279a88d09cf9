package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/claimwatch/internal/alert"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/store"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// UnsolvedInput is content that could not be confidently assessed
type UnsolvedInput struct {
	Content     string            `json:"content"`
	ContentType model.ContentType `json:"content_type"`
	UserID      string            `json:"user_id"`
	Urgency     float64           `json:"urgency"`
}

// ObservedContent is newly seen content that may resolve a query
type ObservedContent struct {
	Content string       `json:"content"`
	Source  string       `json:"source,omitempty"`
	Kind    model.Method `json:"kind,omitempty"`
}

// Overdue is a pending query past its deadline
type Overdue struct {
	Query   model.UnsolvedQuery `json:"query"`
	Elapsed time.Duration       `json:"elapsed"`
	SLA     time.Duration       `json:"sla"`
}

// Monitor owns the unsolved-query lifecycle. Rescans and status
// transitions are serialized by a single mutex, and the store's
// compare-and-set guards against writers in other processes.
type Monitor struct {
	store      store.Store
	dispatcher *alert.Dispatcher
	cfg        model.MonitorConfig
	now        func() time.Time
	logger     *zap.Logger

	mu      sync.Mutex
	observe chan ObservedContent
	sources []Source
}

// NewMonitor creates a monitor. A nil dispatcher disables alerting.
func NewMonitor(st store.Store, dispatcher *alert.Dispatcher, cfg model.MonitorConfig) *Monitor {
	def := model.DefaultConfig().Monitor
	if cfg.ResolutionThreshold == 0 {
		cfg.ResolutionThreshold = def.ResolutionThreshold
	}
	if cfg.CriticalSLA == 0 {
		cfg.CriticalSLA = def.CriticalSLA
	}
	if cfg.HighSLA == 0 {
		cfg.HighSLA = def.HighSLA
	}
	if cfg.MediumSLA == 0 {
		cfg.MediumSLA = def.MediumSLA
	}
	if cfg.ObserveBuffer <= 0 {
		cfg.ObserveBuffer = def.ObserveBuffer
	}

	return &Monitor{
		store:      st,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     zap.L().With(zap.String("component", "monitor")),
		observe:    make(chan ObservedContent, cfg.ObserveBuffer),
	}
}

// SetClock replaces the time source
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// StoreUnsolved records content as a pending query and subscribes the
// submitter. Critical queries raise an intake alert immediately.
func (m *Monitor) StoreUnsolved(ctx context.Context, in UnsolvedInput) (*model.UnsolvedQuery, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, eris.Wrap(model.ErrEmptyContent, "monitor: store unsolved")
	}
	if in.ContentType == "" {
		in.ContentType = model.ContentText
	}

	q, err := m.store.CreateQuery(ctx, model.UnsolvedQuery{
		UserID:            in.UserID,
		Content:           content,
		ContentType:       in.ContentType,
		Priority:          DeterminePriority(content, in.Urgency),
		Keywords:          Keywords(content),
		MonitoringSources: MonitoringSources(content),
		Status:            model.StatusPending,
		StoredAt:          m.now(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitor: create query")
	}

	m.logger.Info("monitor: query stored",
		zap.String("query_id", q.ID),
		zap.String("priority", string(q.Priority)),
		zap.Strings("keywords", q.Keywords))

	if in.UserID != "" {
		if err := m.Subscribe(ctx, q.ID, in.UserID, alert.ChannelsFor(q.Priority)); err != nil {
			return nil, err
		}
	}

	if q.Priority == model.PriorityCritical {
		m.dispatch(ctx, *q, model.AlertCriticalIntake,
			fmt.Sprintf("Critical unverified claim under monitoring: %s", truncate(content, 140)))
	}

	return q, nil
}

// Subscribe registers userID for alerts on queryID
func (m *Monitor) Subscribe(ctx context.Context, queryID, userID string, channels []model.Channel) error {
	sub, err := model.NewSubscription(queryID, userID, channels, m.now())
	if err != nil {
		return err
	}
	if err := m.store.AddSubscription(ctx, sub); err != nil {
		return eris.Wrapf(err, "monitor: subscribe %s", userID)
	}
	return nil
}

// Rescan compares observed content against every pending query and returns
// the IDs of queries that moved to potentially_resolved
func (m *Monitor) Rescan(ctx context.Context, items []ObservedContent) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved := []string{}
	if len(items) == 0 {
		return resolved, nil
	}

	pending, err := m.store.ListQueries(ctx, store.QueryFilter{Status: model.StatusPending})
	if err != nil {
		return nil, eris.Wrap(err, "monitor: list pending")
	}

	for _, q := range pending {
		best, bestScore := -1, 0.0
		for i, item := range items {
			if s := ResolutionScore(q, item.Content); s > bestScore {
				best, bestScore = i, s
			}
		}

		now := m.now()
		if err := m.store.TouchQuery(ctx, q.ID, now); err != nil {
			m.logger.Warn("monitor: touch query", zap.String("query_id", q.ID), zap.Error(err))
		}

		if best < 0 || bestScore <= m.cfg.ResolutionThreshold {
			continue
		}

		res := &model.Resolution{
			Content: items[best].Content,
			Source:     items[best].Source,
			SourceKind: items[best].Kind,
			Score:      bestScore,
			FoundAt:    now,
		}
		err := m.store.TransitionQuery(ctx, q.ID, model.StatusPending, model.StatusPotentiallyResolved, res, now)
		if errors.Is(err, model.ErrInvalidTransition) {
			// Another writer got there first
			continue
		}
		if err != nil {
			return resolved, eris.Wrapf(err, "monitor: transition %s", q.ID)
		}

		q.Status = model.StatusPotentiallyResolved
		q.Resolution = res
		resolved = append(resolved, q.ID)

		m.logger.Info("monitor: query potentially resolved",
			zap.String("query_id", q.ID),
			zap.Float64("score", bestScore),
			zap.String("source", res.Source),
			zap.String("source_kind", string(res.SourceKind)))

		m.dispatch(ctx, q, model.AlertPotentiallyResolved,
			fmt.Sprintf("Possible resolution (score %.2f): %s", bestScore, truncate(res.Content, 140)))
	}

	return resolved, nil
}

// Resolve confirms a potentially resolved query
func (m *Monitor) Resolve(ctx context.Context, queryID string) (*model.UnsolvedQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.TransitionQuery(ctx, queryID, model.StatusPotentiallyResolved, model.StatusResolved, nil, m.now()); err != nil {
		return nil, err
	}
	return m.store.GetQuery(ctx, queryID)
}

// Overdue lists pending queries older than their priority's deadline
func (m *Monitor) Overdue(ctx context.Context) ([]Overdue, error) {
	pending, err := m.store.ListQueries(ctx, store.QueryFilter{Status: model.StatusPending})
	if err != nil {
		return nil, eris.Wrap(err, "monitor: list pending")
	}

	now := m.now()
	out := []Overdue{}
	for _, q := range pending {
		sla := m.cfg.SLA(q.Priority)
		if elapsed := now.Sub(q.StoredAt); elapsed > sla {
			out = append(out, Overdue{Query: q, Elapsed: elapsed, SLA: sla})
		}
	}
	return out, nil
}

// Get returns one query
func (m *Monitor) Get(ctx context.Context, queryID string) (*model.UnsolvedQuery, error) {
	return m.store.GetQuery(ctx, queryID)
}

// List returns queries matching filter
func (m *Monitor) List(ctx context.Context, filter store.QueryFilter) ([]model.UnsolvedQuery, error) {
	return m.store.ListQueries(ctx, filter)
}

// History returns the delivery attempts logged for userID
func (m *Monitor) History(ctx context.Context, userID string) ([]model.Delivery, error) {
	return m.store.Deliveries(ctx, userID)
}

func (m *Monitor) dispatch(ctx context.Context, q model.UnsolvedQuery, typ model.AlertType, summary string) {
	if m.dispatcher == nil {
		return
	}
	if _, err := m.dispatcher.Dispatch(ctx, q, typ, summary); err != nil {
		if errors.Is(err, model.ErrDuplicateAlert) {
			m.logger.Debug("monitor: duplicate alert suppressed", zap.String("query_id", q.ID))
			return
		}
		m.logger.Error("monitor: dispatch alert", zap.String("query_id", q.ID), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
