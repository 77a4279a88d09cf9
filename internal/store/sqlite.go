package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/claimwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS queries (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	content            TEXT NOT NULL,
	content_type       TEXT NOT NULL,
	priority           TEXT NOT NULL,
	keywords           TEXT NOT NULL,
	monitoring_sources TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	stored_at          TEXT NOT NULL,
	resolved_at        TEXT,
	resolution         TEXT,
	check_count        INTEGER NOT NULL DEFAULT 0,
	last_checked_at    TEXT
);

CREATE TABLE IF NOT EXISTS subscriptions (
	query_id      TEXT NOT NULL REFERENCES queries(id),
	user_id       TEXT NOT NULL,
	channels      TEXT NOT NULL,
	registered_at TEXT NOT NULL,
	PRIMARY KEY (query_id, user_id)
);

CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	query_id        TEXT NOT NULL,
	type            TEXT NOT NULL,
	priority        TEXT NOT NULL,
	payload_summary TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS deliveries (
	alert_id     TEXT NOT NULL REFERENCES alerts(id),
	user_id      TEXT NOT NULL,
	channel      TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	attempted_at TEXT NOT NULL,
	PRIMARY KEY (alert_id, user_id, channel)
);

CREATE INDEX IF NOT EXISTS idx_queries_status ON queries(status);
CREATE INDEX IF NOT EXISTS idx_queries_user_id ON queries(user_id);
CREATE INDEX IF NOT EXISTS idx_alerts_query_id ON alerts(query_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_user_id ON deliveries(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateQuery(ctx context.Context, q model.UnsolvedQuery) (*model.UnsolvedQuery, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Status == "" {
		q.Status = model.StatusPending
	}

	keywords, err := json.Marshal(q.Keywords)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal keywords")
	}
	sources, err := json.Marshal(q.MonitoringSources)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal monitoring sources")
	}
	resolution, err := marshalNullable(q.Resolution)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queries (id, user_id, content, content_type, priority, keywords, monitoring_sources,
			status, stored_at, resolved_at, resolution, check_count, last_checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.UserID, q.Content, string(q.ContentType), string(q.Priority), string(keywords), string(sources),
		string(q.Status), formatTime(q.StoredAt), formatNullableTime(q.ResolvedAt), resolution,
		q.CheckCount, formatNullableTime(q.LastCheckedAt),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert query")
	}

	return &q, nil
}

const selectQuery = `SELECT id, user_id, content, content_type, priority, keywords, monitoring_sources,
	status, stored_at, resolved_at, resolution, check_count, last_checked_at FROM queries`

func (s *SQLiteStore) GetQuery(ctx context.Context, id string) (*model.UnsolvedQuery, error) {
	row := s.db.QueryRowContext(ctx, selectQuery+` WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrQueryNotFound, "sqlite: query %s", id)
	}
	return q, err
}

func (s *SQLiteStore) ListQueries(ctx context.Context, filter QueryFilter) ([]model.UnsolvedQuery, error) {
	query := selectQuery + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY stored_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.UnsolvedQuery{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate queries")
}

func (s *SQLiteStore) TransitionQuery(ctx context.Context, id string, from, to model.QueryStatus, res *model.Resolution, at time.Time) error {
	if err := checkTransition(id, from, to); err != nil {
		return err
	}

	resolution, err := marshalNullable(res)
	if err != nil {
		return err
	}
	var resolvedAt any
	if to == model.StatusResolved {
		resolvedAt = formatTime(at)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE queries SET status = ?, resolution = COALESCE(?, resolution), resolved_at = COALESCE(?, resolved_at)
		WHERE id = ? AND status = ?`,
		string(to), resolution, resolvedAt, id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition query %s", id)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return nil
	}

	// Lost the compare-and-set: report why
	current, err := s.GetQuery(ctx, id)
	if err != nil {
		return err
	}
	return eris.Wrapf(model.ErrInvalidTransition, "query %s is %s, not %s", id, current.Status, from)
}

func (s *SQLiteStore) TouchQuery(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queries SET check_count = check_count + 1, last_checked_at = ? WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch query %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) AddSubscription(ctx context.Context, sub model.Subscription) error {
	if _, err := s.GetQuery(ctx, sub.QueryID); err != nil {
		return err
	}

	channels, err := json.Marshal(sub.Channels)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal channels")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (query_id, user_id, channels, registered_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (query_id, user_id) DO NOTHING`,
		sub.QueryID, sub.UserID, string(channels), formatTime(sub.RegisteredAt),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert subscription")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(model.ErrInvalidSubscription, "sqlite: %s already subscribed to %s", sub.UserID, sub.QueryID)
	}
	return nil
}

func (s *SQLiteStore) Subscriptions(ctx context.Context, queryID string) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, user_id, channels, registered_at FROM subscriptions WHERE query_id = ? ORDER BY rowid`,
		queryID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subscriptions")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var channels, registeredAt string
		if err := rows.Scan(&sub.QueryID, &sub.UserID, &channels, &registeredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subscription")
		}
		if err := json.Unmarshal([]byte(channels), &sub.Channels); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal channels")
		}
		if sub.RegisteredAt, err = parseTime(registeredAt); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate subscriptions")
}

func (s *SQLiteStore) AppendAlert(ctx context.Context, alert model.Alert) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, query_id, type, priority, payload_summary, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		alert.ID, alert.QueryID, string(alert.Type), string(alert.Priority), alert.PayloadSummary, formatTime(alert.CreatedAt),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert alert")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(model.ErrDuplicateAlert, "sqlite: alert %s", alert.ID)
	}
	return nil
}

func (s *SQLiteStore) Alerts(ctx context.Context, queryID string) ([]model.Alert, error) {
	query := `SELECT id, query_id, type, priority, payload_summary, created_at FROM alerts`
	var args []any
	if queryID != "" {
		query += ` WHERE query_id = ?`
		args = append(args, queryID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list alerts")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Alert{}
	for rows.Next() {
		var a model.Alert
		var createdAt string
		if err := rows.Scan(&a.ID, &a.QueryID, &a.Type, &a.Priority, &a.PayloadSummary, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alert")
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate alerts")
}

func (s *SQLiteStore) RecordDelivery(ctx context.Context, d model.Delivery) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (alert_id, user_id, channel, status, error, attempted_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (alert_id, user_id, channel) DO NOTHING`,
		d.AlertID, d.UserID, string(d.Channel), string(d.Status), d.Error, formatTime(d.AttemptedAt),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert delivery")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrDuplicateDelivery, "sqlite: %s/%s/%s", d.AlertID, d.UserID, d.Channel)
	}
	return nil
}

func (s *SQLiteStore) Deliveries(ctx context.Context, userID string) ([]model.Delivery, error) {
	query := `SELECT alert_id, user_id, channel, status, error, attempted_at FROM deliveries`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deliveries")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Delivery{}
	for rows.Next() {
		var d model.Delivery
		var attemptedAt string
		if err := rows.Scan(&d.AlertID, &d.UserID, &d.Channel, &d.Status, &d.Error, &attemptedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan delivery")
		}
		if d.AttemptedAt, err = parseTime(attemptedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate deliveries")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrQueryNotFound, "sqlite: query %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanQuery(row scannable) (*model.UnsolvedQuery, error) {
	var q model.UnsolvedQuery
	var keywords, sources, storedAt string
	var resolvedAt, resolution, lastCheckedAt sql.NullString

	err := row.Scan(&q.ID, &q.UserID, &q.Content, &q.ContentType, &q.Priority, &keywords, &sources,
		&q.Status, &storedAt, &resolvedAt, &resolution, &q.CheckCount, &lastCheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan query")
	}

	if err := json.Unmarshal([]byte(keywords), &q.Keywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
	}
	if err := json.Unmarshal([]byte(sources), &q.MonitoringSources); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal monitoring sources")
	}
	if q.StoredAt, err = parseTime(storedAt); err != nil {
		return nil, err
	}
	if q.ResolvedAt, err = parseNullableTime(resolvedAt); err != nil {
		return nil, err
	}
	if q.LastCheckedAt, err = parseNullableTime(lastCheckedAt); err != nil {
		return nil, err
	}
	if resolution.Valid {
		q.Resolution = &model.Resolution{}
		if err := json.Unmarshal([]byte(resolution.String), q.Resolution); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal resolution")
		}
	}
	return &q, nil
}

func marshalNullable(res *model.Resolution) (any, error) {
	if res == nil {
		return nil, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal resolution")
	}
	return string(data), nil
}

// timeLayout is fixed width so stored times sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", s)
	}
	return t, nil
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
