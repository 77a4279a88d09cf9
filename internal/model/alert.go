package model

import "time"

// Channel is a notification transport
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
	ChannelInApp   Channel = "in_app"
)

// Valid reports whether c is a known channel
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook, ChannelInApp:
		return true
	}
	return false
}

// ParseChannels converts raw names to channels. Validation happens in NewSubscription.
func ParseChannels(raw []string) []Channel {
	out := make([]Channel, 0, len(raw))
	for _, r := range raw {
		out = append(out, Channel(r))
	}
	return out
}

// AlertType identifies why an alert was raised
type AlertType string

const (
	AlertCriticalIntake      AlertType = "critical_intake"
	AlertPotentiallyResolved AlertType = "potentially_resolved"
)

// Alert is a write-once notification record
type Alert struct {
	ID             string    `json:"id"`
	QueryID        string    `json:"query_id,omitempty"`
	Type           AlertType `json:"type"`
	Priority       Priority  `json:"priority"`
	PayloadSummary string    `json:"payload_summary"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeliveryStatus is the outcome of one delivery attempt
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Delivery logs one attempt per (alert, user, channel)
type Delivery struct {
	AlertID     string         `json:"alert_id"`
	UserID      string         `json:"user_id"`
	Channel     Channel        `json:"channel"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attempted_at"`
}
