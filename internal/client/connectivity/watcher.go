// Package connectivity detects when the server becomes reachable again
// and invokes the registered sync trigger. The watcher is optional:
// without one, sync runs only when explicitly invoked.
package connectivity

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/yorgalore/storysync/internal/logging"
)

// Pinger probes server reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Trigger is the action fired on the offline-to-online edge. A non-nil
// error marks the attempt as incomplete; the backoff wrapper retries.
type Trigger func(ctx context.Context) error

// Watcher polls the transport and fires the trigger once per
// offline-to-online transition. The very first successful ping also
// fires, covering queued work left over from a previous run.
type Watcher struct {
	client   Pinger
	interval time.Duration
	trigger  Trigger
	log      logging.Logger
}

// NewWatcher returns a Watcher probing client every interval.
func NewWatcher(client Pinger, interval time.Duration, trigger Trigger, log logging.Logger) *Watcher {
	return &Watcher{client: client, interval: interval, trigger: trigger, log: log}
}

// Run blocks until ctx is done, probing reachability on every tick.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	online := false
	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, w.interval)
			err := w.client.Ping(pingCtx)
			cancel()

			if err != nil {
				if online {
					w.log.Info(ctx, "connectivity lost")
				}
				online = false
				continue
			}
			if !online {
				online = true
				w.log.Info(ctx, "connectivity restored, triggering sync")
				if err := w.trigger(ctx); err != nil {
					w.log.Warn(ctx, "sync trigger failed", "err", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// WithBackoff wraps fn in a capped exponential retry policy. The
// original design fired a single best-effort signal; repeated
// invocation with backoff is the safety net for items that stay queued
// due to transient failures.
func WithBackoff(base, cap time.Duration, maxRetries uint64, fn Trigger) Trigger {
	return func(ctx context.Context) error {
		b := retry.NewExponential(base)
		b = retry.WithCappedDuration(cap, b)
		b = retry.WithMaxRetries(maxRetries, b)
		return retry.Do(ctx, b, func(ctx context.Context) error {
			return fn(ctx)
		})
	}
}

// Retryable marks err as transient so WithBackoff schedules another
// attempt.
func Retryable(err error) error {
	return retry.RetryableError(err)
}
