package query

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Source produces newly observed content, such as items from a news feed
type Source interface {
	Name() string
	Poll(ctx context.Context) ([]ObservedContent, error)
}

// AddSource registers a source polled on the monitor schedule
func (m *Monitor) AddSource(src Source) {
	m.sources = append(m.sources, src)
}

// Observe queues content for the next rescan. It blocks while the queue is
// full and gives up when ctx is done.
func (m *Monitor) Observe(ctx context.Context, item ObservedContent) error {
	select {
	case m.observe <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes observed content until ctx is cancelled. When a schedule is
// configured it also polls the registered sources and logs overdue queries.
// On cancellation no new ticks start, a running tick is awaited, and content
// already queued is rescanned before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	var scheduler *cron.Cron
	if m.cfg.Schedule != "" {
		scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{m.logger.Sugar()})))
		if _, err := scheduler.AddFunc(m.cfg.Schedule, func() { m.tick(ctx) }); err != nil {
			return eris.Wrapf(err, "monitor: schedule %q", m.cfg.Schedule)
		}
		scheduler.Start()
		m.logger.Info("monitor: started", zap.String("schedule", m.cfg.Schedule), zap.Int("sources", len(m.sources)))
	}

	for {
		select {
		case <-ctx.Done():
			if scheduler != nil {
				<-scheduler.Stop().Done()
			}
			m.drain(context.WithoutCancel(ctx))
			m.logger.Info("monitor: stopped")
			return nil
		case item := <-m.observe:
			batch := append([]ObservedContent{item}, m.pending()...)
			m.rescanBatch(context.WithoutCancel(ctx), batch)
		}
	}
}

// tick polls every source once and sweeps for overdue queries
func (m *Monitor) tick(ctx context.Context) {
	for _, src := range m.sources {
		items, err := src.Poll(ctx)
		if err != nil {
			m.logger.Warn("monitor: poll source", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		for _, item := range items {
			if err := m.Observe(ctx, item); err != nil {
				return
			}
		}
	}

	overdue, err := m.Overdue(ctx)
	if err != nil {
		m.logger.Warn("monitor: overdue sweep", zap.Error(err))
		return
	}
	for _, o := range overdue {
		m.logger.Warn("monitor: query overdue",
			zap.String("query_id", o.Query.ID),
			zap.String("priority", string(o.Query.Priority)),
			zap.Duration("elapsed", o.Elapsed),
			zap.Duration("sla", o.SLA))
	}
}

// pending takes whatever is already queued without blocking
func (m *Monitor) pending() []ObservedContent {
	var items []ObservedContent
	for {
		select {
		case item := <-m.observe:
			items = append(items, item)
		default:
			return items
		}
	}
}

func (m *Monitor) drain(ctx context.Context) {
	if items := m.pending(); len(items) > 0 {
		m.rescanBatch(ctx, items)
	}
}

func (m *Monitor) rescanBatch(ctx context.Context, items []ObservedContent) {
	ids, err := m.Rescan(ctx, items)
	if err != nil {
		m.logger.Error("monitor: rescan", zap.Error(err))
	}
	if len(ids) > 0 {
		m.logger.Info("monitor: rescan resolved queries", zap.Int("items", len(items)), zap.Strings("query_ids", ids))
	}
}

// cronLogger routes scheduler messages to zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
