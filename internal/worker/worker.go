package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/webrecap/webrecap/internal/model"
	"github.com/webrecap/webrecap/internal/notify"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Loop drives a queue drainer. It wakes on bus notifications for its channel
// and on a fallback ticker, so lost notifications only delay work until the
// next tick.
type Loop struct {
	name     string
	channel  string
	bus      notify.Bus
	interval time.Duration
	drain    func(ctx context.Context)
}

func NewLoop(name string, channel string, bus notify.Bus, interval time.Duration, drain func(ctx context.Context)) *Loop {
	return &Loop{name: name, channel: channel, bus: bus, interval: interval, drain: drain}
}

// Run blocks until ctx is cancelled. The queue is drained once at startup so
// work enqueued while the process was down is picked up immediately.
func (l *Loop) Run(ctx context.Context) {
	logger := logutil.GetLogger(ctx).With(zap.String("worker", l.name))
	wake, cancel := l.bus.Subscribe(l.channel)
	defer cancel()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	logger.Info("worker started", zap.String("channel", l.channel), zap.Duration("poll_interval", l.interval))
	l.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return
		case _, ok := <-wake:
			if !ok {
				// bus shut down; keep polling
				wake = nil
				continue
			}
			l.drain(ctx)
		case <-ticker.C:
			l.drain(ctx)
		}
	}
}

// publishProgress is best-effort. SSE consumers that miss events still see
// the final state through the document row.
func publishProgress(ctx context.Context, bus notify.Bus, docID string, stage string, summary json.RawMessage) {
	event := model.ProgressEvent{ID: docID, Stage: stage, Summary: summary}
	blob, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := bus.Publish(ctx, notify.ChannelProgressUpdate, string(blob)); err != nil {
		logutil.GetLogger(ctx).Warn("failed to publish progress",
			zap.String("doc_id", docID), zap.String("stage", stage), zap.Error(err))
	}
}
