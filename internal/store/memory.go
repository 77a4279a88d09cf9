package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu            sync.RWMutex
	queries       map[string]*model.UnsolvedQuery
	subscriptions map[string][]model.Subscription
	alerts        []model.Alert
	alertIDs      map[string]bool
	deliveries    []model.Delivery
	deliveryKeys  map[string]bool
}

// NewMemory creates an empty memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{
		queries:       make(map[string]*model.UnsolvedQuery),
		subscriptions: make(map[string][]model.Subscription),
		alertIDs:      make(map[string]bool),
		deliveryKeys:  make(map[string]bool),
	}
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateQuery(ctx context.Context, q model.UnsolvedQuery) (*model.UnsolvedQuery, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Status == "" {
		q.Status = model.StatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.queries[q.ID]; exists {
		return nil, eris.Errorf("store: query %s already exists", q.ID)
	}
	stored := cloneQuery(q)
	s.queries[q.ID] = &stored

	out := cloneQuery(q)
	return &out, nil
}

func (s *MemoryStore) GetQuery(ctx context.Context, id string) (*model.UnsolvedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.queries[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrQueryNotFound, "store: query %s", id)
	}
	out := cloneQuery(*q)
	return &out, nil
}

func (s *MemoryStore) ListQueries(ctx context.Context, filter QueryFilter) ([]model.UnsolvedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.UnsolvedQuery, 0, len(s.queries))
	for _, q := range s.queries {
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && q.UserID != filter.UserID {
			continue
		}
		out = append(out, cloneQuery(*q))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].StoredAt.Before(out[j].StoredAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) TransitionQuery(ctx context.Context, id string, from, to model.QueryStatus, res *model.Resolution, at time.Time) error {
	if err := checkTransition(id, from, to); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[id]
	if !ok {
		return eris.Wrapf(model.ErrQueryNotFound, "store: query %s", id)
	}
	if q.Status != from {
		return eris.Wrapf(model.ErrInvalidTransition, "query %s is %s, not %s", id, q.Status, from)
	}

	q.Status = to
	if res != nil {
		r := *res
		q.Resolution = &r
	}
	if to == model.StatusResolved {
		t := at
		q.ResolvedAt = &t
	}
	return nil
}

func (s *MemoryStore) TouchQuery(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queries[id]
	if !ok {
		return eris.Wrapf(model.ErrQueryNotFound, "store: query %s", id)
	}
	q.CheckCount++
	t := at
	q.LastCheckedAt = &t
	return nil
}

// AddSubscription records a new subscription. A user already subscribed to
// the query gets ErrInvalidSubscription and the existing record is kept.
func (s *MemoryStore) AddSubscription(ctx context.Context, sub model.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queries[sub.QueryID]; !ok {
		return eris.Wrapf(model.ErrQueryNotFound, "store: query %s", sub.QueryID)
	}

	sub.Channels = append([]model.Channel(nil), sub.Channels...)
	subs := s.subscriptions[sub.QueryID]
	for _, existing := range subs {
		if existing.UserID == sub.UserID {
			return eris.Wrapf(model.ErrInvalidSubscription, "store: %s already subscribed to %s", sub.UserID, sub.QueryID)
		}
	}
	s.subscriptions[sub.QueryID] = append(subs, sub)
	return nil
}

func (s *MemoryStore) Subscriptions(ctx context.Context, queryID string) ([]model.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := s.subscriptions[queryID]
	out := make([]model.Subscription, len(subs))
	for i, sub := range subs {
		sub.Channels = append([]model.Channel(nil), sub.Channels...)
		out[i] = sub
	}
	return out, nil
}

func (s *MemoryStore) AppendAlert(ctx context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.alertIDs[alert.ID] {
		return eris.Wrapf(model.ErrDuplicateAlert, "store: alert %s", alert.ID)
	}
	s.alertIDs[alert.ID] = true
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *MemoryStore) Alerts(ctx context.Context, queryID string) ([]model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Alert{}
	for _, a := range s.alerts {
		if queryID == "" || a.QueryID == queryID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordDelivery(ctx context.Context, d model.Delivery) error {
	key := d.AlertID + "\x00" + d.UserID + "\x00" + string(d.Channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deliveryKeys[key] {
		return eris.Wrapf(ErrDuplicateDelivery, "store: %s/%s/%s", d.AlertID, d.UserID, d.Channel)
	}
	s.deliveryKeys[key] = true
	s.deliveries = append(s.deliveries, d)
	return nil
}

func (s *MemoryStore) Deliveries(ctx context.Context, userID string) ([]model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Delivery{}
	for _, d := range s.deliveries {
		if userID == "" || d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func cloneQuery(q model.UnsolvedQuery) model.UnsolvedQuery {
	q.Keywords = append([]string(nil), q.Keywords...)
	q.MonitoringSources = append([]string(nil), q.MonitoringSources...)
	if q.Resolution != nil {
		r := *q.Resolution
		q.Resolution = &r
	}
	if q.ResolvedAt != nil {
		t := *q.ResolvedAt
		q.ResolvedAt = &t
	}
	if q.LastCheckedAt != nil {
		t := *q.LastCheckedAt
		q.LastCheckedAt = &t
	}
	return q
}
