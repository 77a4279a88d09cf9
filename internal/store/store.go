package store

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
)

// ErrDuplicateDelivery is returned when an (alert, user, channel) attempt was already logged
var ErrDuplicateDelivery = eris.New("duplicate delivery")

// QueryFilter narrows ListQueries. Zero values match everything.
type QueryFilter struct {
	Status model.QueryStatus `json:"status,omitempty"`
	UserID string            `json:"user_id,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// Store persists unsolved queries, subscriptions, alerts and the delivery log.
type Store interface {
	// Queries
	CreateQuery(ctx context.Context, q model.UnsolvedQuery) (*model.UnsolvedQuery, error)
	GetQuery(ctx context.Context, id string) (*model.UnsolvedQuery, error)
	ListQueries(ctx context.Context, filter QueryFilter) ([]model.UnsolvedQuery, error)
	// TransitionQuery moves id from -> to only if it is currently in from.
	// Moving to potentially_resolved records res; moving to resolved records at.
	TransitionQuery(ctx context.Context, id string, from, to model.QueryStatus, res *model.Resolution, at time.Time) error
	// TouchQuery bumps the check counter after a rescan compared content against the query
	TouchQuery(ctx context.Context, id string, at time.Time) error

	// Subscriptions
	AddSubscription(ctx context.Context, sub model.Subscription) error
	Subscriptions(ctx context.Context, queryID string) ([]model.Subscription, error)

	// Alerts and deliveries
	AppendAlert(ctx context.Context, alert model.Alert) error
	Alerts(ctx context.Context, queryID string) ([]model.Alert, error)
	RecordDelivery(ctx context.Context, d model.Delivery) error
	Deliveries(ctx context.Context, userID string) ([]model.Delivery, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg and migrates it
func New(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	var st Store
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		st = NewMemory()
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "claimwatch.db"
		}
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("store: unknown driver %q (supported: memory, sqlite)", cfg.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func checkTransition(id string, from, to model.QueryStatus) error {
	if !model.CanTransition(from, to) {
		return eris.Wrapf(model.ErrInvalidTransition, "query %s: %s -> %s", id, from, to)
	}
	return nil
}
