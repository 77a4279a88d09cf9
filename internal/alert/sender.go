package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sender delivers one alert to one user over one channel
type Sender interface {
	Send(ctx context.Context, channel model.Channel, userID string, alert model.Alert) error
}

// SenderFunc adapts a function to the Sender interface
type SenderFunc func(ctx context.Context, channel model.Channel, userID string, alert model.Alert) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, channel model.Channel, userID string, alert model.Alert) error {
	return f(ctx, channel, userID, alert)
}

// LogSender writes alerts to the structured log. It stands in for
// transports that are not configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log sender; nil uses the global logger
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.L()
	}
	return &LogSender{logger: logger.With(zap.String("component", "alert"))}
}

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, channel model.Channel, userID string, alert model.Alert) error {
	s.logger.Info("alert: delivered",
		zap.String("alert_id", alert.ID),
		zap.String("query_id", alert.QueryID),
		zap.String("type", string(alert.Type)),
		zap.String("priority", string(alert.Priority)),
		zap.String("channel", string(channel)),
		zap.String("user_id", userID),
		zap.String("summary", alert.PayloadSummary),
	)
	return nil
}

type webhookPayload struct {
	Channel model.Channel `json:"channel"`
	UserID  string        `json:"user_id"`
	Alert   model.Alert   `json:"alert"`
}

// WebhookSender posts alerts as JSON to a URL
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a webhook sender
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send implements Sender
func (s *WebhookSender) Send(ctx context.Context, channel model.Channel, userID string, alert model.Alert) error {
	payload, err := json.Marshal(webhookPayload{Channel: channel, UserID: userID, Alert: alert})
	if err != nil {
		return eris.Wrap(err, "alert: marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alert: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Claimwatch-Alert", alert.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alert: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("alert: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// MultiSender routes each channel to its own sender
type MultiSender struct {
	routes   map[model.Channel]Sender
	fallback Sender
}

// NewMultiSender creates a router; channels without a route use fallback
func NewMultiSender(fallback Sender) *MultiSender {
	return &MultiSender{routes: make(map[model.Channel]Sender), fallback: fallback}
}

// Route registers sender for channel
func (m *MultiSender) Route(channel model.Channel, sender Sender) *MultiSender {
	m.routes[channel] = sender
	return m
}

// Send implements Sender
func (m *MultiSender) Send(ctx context.Context, channel model.Channel, userID string, alert model.Alert) error {
	if s, ok := m.routes[channel]; ok {
		return s.Send(ctx, channel, userID, alert)
	}
	if m.fallback == nil {
		return eris.Errorf("alert: no sender for channel %s", channel)
	}
	return m.fallback.Send(ctx, channel, userID, alert)
}

// NewFromConfig builds the sender set: the webhook channel posts to the
// configured URL and every other channel is logged
func NewFromConfig(cfg model.AlertConfig) Sender {
	multi := NewMultiSender(NewLogSender(nil))
	if cfg.WebhookURL != "" {
		multi.Route(model.ChannelWebhook, NewWebhookSender(cfg.WebhookURL, cfg.SendTimeout))
	}
	return multi
}
