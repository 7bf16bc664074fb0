// Package notify renders alerts and delivers them to the broadcast chat and to
// every subscriber watching the alert's symbol.
package notify

import (
	"context"
	"sync/atomic"
	"time"

	"perpscanner/internal/alert"
	"perpscanner/internal/apperr"
	"perpscanner/internal/observability"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Sender delivers one text message to one chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Subscribers resolves the chats watching a symbol.
type Subscribers interface {
	SubscribersOf(symbol string) []int64
}

type Options struct {
	BroadcastChatID   int64 // 0 disables broadcast
	InterMessageDelay time.Duration
	Metrics           *observability.Metrics
}

// Report summarizes one Dispatch call. An alert counts as delivered when at
// least one destination accepted it.
type Report struct {
	Alerts         int
	Delivered      int
	Undelivered    int
	Messages       int
	FailedMessages int
}

type Dispatcher struct {
	sender  Sender
	subs    Subscribers
	opts    Options
	logger  *zap.Logger
	metrics *observability.Metrics

	sent atomic.Int64
}

func NewDispatcher(sender Sender, subs Subscribers, opts Options, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		subs:    subs,
		opts:    opts,
		logger:  logger.Named("notify"),
		metrics: opts.Metrics,
	}
}

// AlertsSent is the number of alerts delivered to at least one destination
// since startup.
func (d *Dispatcher) AlertsSent() int64 {
	return d.sent.Load()
}

// Dispatch delivers alerts in order. Consecutive alerts are separated by the
// inter-message delay. Failures are logged and never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []alert.Alert) Report {
	report := Report{Alerts: len(alerts)}

	for i, a := range alerts {
		if i > 0 && !d.pace(ctx) {
			report.Undelivered += len(alerts) - i
			d.logger.Warn("dispatch interrupted", zap.Int("remaining", len(alerts)-i))
			break
		}

		text := alert.Render(a)
		delivered := false

		if d.opts.BroadcastChatID != 0 {
			report.Messages++
			if d.deliver(ctx, "broadcast", d.opts.BroadcastChatID, a, text) {
				delivered = true
			} else {
				report.FailedMessages++
			}
		}

		for _, chatID := range d.subscribers(a.Symbol()) {
			report.Messages++
			if d.deliver(ctx, "subscriber", chatID, a, text) {
				delivered = true
			} else {
				report.FailedMessages++
			}
		}

		if delivered {
			report.Delivered++
			d.sent.Add(1)
		} else {
			report.Undelivered++
		}
	}

	return report
}

// SendStartup posts text to the broadcast chat. It is a no-op without one.
func (d *Dispatcher) SendStartup(ctx context.Context, text string) error {
	if d.opts.BroadcastChatID == 0 {
		return nil
	}
	if err := d.sender.SendMessage(ctx, d.opts.BroadcastChatID, text); err != nil {
		return &apperr.TransportError{Destination: d.opts.BroadcastChatID, Err: err}
	}
	return nil
}

func (d *Dispatcher) subscribers(symbol string) []int64 {
	if d.subs == nil {
		return nil
	}
	return lo.Without(d.subs.SubscribersOf(symbol), d.opts.BroadcastChatID)
}

func (d *Dispatcher) deliver(ctx context.Context, kind string, chatID int64, a alert.Alert, text string) bool {
	err := d.sender.SendMessage(ctx, chatID, text)
	d.metrics.RecordDelivery(kind, err == nil)
	if err != nil {
		terr := &apperr.TransportError{Destination: chatID, Err: err}
		d.logger.Warn("alert delivery failed",
			zap.String("symbol", a.Symbol()),
			zap.String("kind", string(a.Kind())),
			zap.String("destination", kind),
			zap.Error(terr))
		return false
	}
	return true
}

func (d *Dispatcher) pace(ctx context.Context) bool {
	if d.opts.InterMessageDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d.opts.InterMessageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
