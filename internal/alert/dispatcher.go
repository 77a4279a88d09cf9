package alert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/store"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// priorityChannels are the channels an alert of each priority goes out on
var priorityChannels = map[model.Priority][]model.Channel{
	model.PriorityCritical: {model.ChannelEmail, model.ChannelSMS, model.ChannelPush, model.ChannelWebhook},
	model.PriorityHigh:     {model.ChannelEmail, model.ChannelPush},
}

// ChannelsFor returns the channel set for a priority
func ChannelsFor(p model.Priority) []model.Channel {
	if chs, ok := priorityChannels[p]; ok {
		return append([]model.Channel(nil), chs...)
	}
	return []model.Channel{model.ChannelEmail}
}

// AlertID derives the alert identifier from its query, type and creation time
func AlertID(queryID string, typ model.AlertType, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(queryID + "|" + string(typ) + "|" + createdAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:16]
}

// Outcome is the result of one dispatch
type Outcome struct {
	Alert      model.Alert      `json:"alert"`
	Deliveries []model.Delivery `json:"deliveries"`
}

// Dispatcher records alerts and fans them out to subscribers
type Dispatcher struct {
	store       store.Store
	sender      Sender
	sendTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(st store.Store, sender Sender, sendTimeout time.Duration) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		store:       st,
		sender:      sender,
		sendTimeout: sendTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      zap.L().With(zap.String("component", "dispatcher")),
	}
}

// SetClock replaces the time source
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Dispatch appends an alert for q and delivers it to every subscriber.
// A repeated alert ID returns an error wrapping model.ErrDuplicateAlert and
// sends nothing. A failing channel never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, q model.UnsolvedQuery, typ model.AlertType, summary string) (*Outcome, error) {
	createdAt := d.now()
	alert := model.Alert{
		ID:             AlertID(q.ID, typ, createdAt),
		QueryID:        q.ID,
		Type:           typ,
		Priority:       q.Priority,
		PayloadSummary: summary,
		CreatedAt:      createdAt,
	}

	if err := d.store.AppendAlert(ctx, alert); err != nil {
		return nil, err
	}

	subs, err := d.store.Subscriptions(ctx, q.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "alert: subscriptions for %s", q.ID)
	}

	prioritySet := ChannelsFor(q.Priority)

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		deliveries []model.Delivery
	)
	for _, sub := range subs {
		for _, ch := range SelectChannels(prioritySet, sub.Channels) {
			wg.Add(1)
			go func(userID string, ch model.Channel) {
				defer wg.Done()
				delivery := d.deliver(ctx, alert, userID, ch)
				mu.Lock()
				deliveries = append(deliveries, delivery)
				mu.Unlock()
			}(sub.UserID, ch)
		}
	}
	wg.Wait()

	sort.Slice(deliveries, func(i, j int) bool {
		if deliveries[i].UserID != deliveries[j].UserID {
			return deliveries[i].UserID < deliveries[j].UserID
		}
		return deliveries[i].Channel < deliveries[j].Channel
	})

	d.logger.Info("alert: dispatched",
		zap.String("alert_id", alert.ID),
		zap.String("query_id", q.ID),
		zap.String("type", string(typ)),
		zap.Int("subscribers", len(subs)),
		zap.Int("deliveries", len(deliveries)),
	)

	return &Outcome{Alert: alert, Deliveries: deliveries}, nil
}

// deliver sends on one channel and logs the attempt exactly once
func (d *Dispatcher) deliver(ctx context.Context, alert model.Alert, userID string, ch model.Channel) model.Delivery {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	delivery := model.Delivery{
		AlertID: alert.ID,
		UserID:  userID,
		Channel: ch,
		Status:  model.DeliverySent,
	}

	if err := d.send(sendCtx, ch, userID, alert); err != nil {
		delivery.Status = model.DeliveryFailed
		delivery.Error = err.Error()
		d.logger.Warn("alert: delivery failed",
			zap.String("alert_id", alert.ID),
			zap.String("user_id", userID),
			zap.String("channel", string(ch)),
			zap.Error(err))
	}
	delivery.AttemptedAt = d.now()

	if err := d.store.RecordDelivery(ctx, delivery); err != nil && !errors.Is(err, store.ErrDuplicateDelivery) {
		d.logger.Error("alert: record delivery", zap.String("alert_id", alert.ID), zap.Error(err))
	}
	return delivery
}

// send isolates a panicking sender to its own channel
func (d *Dispatcher) send(ctx context.Context, ch model.Channel, userID string, alert model.Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("alert: sender panic: %v", r)
		}
	}()
	return d.sender.Send(ctx, ch, userID, alert)
}

// SelectChannels returns the subscriber's channels that are in the priority
// set, or all of the subscriber's channels when none are
func SelectChannels(prioritySet, subscribed []model.Channel) []model.Channel {
	allowed := make(map[model.Channel]bool, len(prioritySet))
	for _, ch := range prioritySet {
		allowed[ch] = true
	}

	var out []model.Channel
	for _, ch := range subscribed {
		if allowed[ch] {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		out = append(out, subscribed...)
	}
	return out
}
