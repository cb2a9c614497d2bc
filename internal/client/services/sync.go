package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yorgalore/storysync/internal/client/events"
	"github.com/yorgalore/storysync/internal/client/models"
	"github.com/yorgalore/storysync/internal/client/transport"
	"github.com/yorgalore/storysync/internal/logging"
)

// ErrCorruptedAttachment marks a queued story whose photo blob is gone.
// Retrying can never succeed, so the item is dropped permanently.
var ErrCorruptedAttachment = errors.New("queued story references a missing attachment")

// SweepStats summarizes one reconciliation sweep.
type SweepStats struct {
	Synced  int // forwarded to the server and removed locally
	Failed  int // left queued for a later sweep
	Dropped int // removed permanently (corrupted attachment)
}

// Reconciler drains the offline queue when connectivity returns. Items
// are processed independently and concurrently; one failure never
// aborts its siblings. Overlapping sweeps are tolerated: a duplicate
// attempt either re-sends a still-queued item or no-ops on a removed
// one.
type Reconciler struct {
	queue       OfflineQueue
	attachments AttachmentManager
	client      transport.Client
	bus         *events.Bus
	log         logging.Logger
}

// NewReconciler returns a Reconciler over the queue, attachment
// manager, transport, and event bus.
func NewReconciler(q OfflineQueue, am AttachmentManager, client transport.Client, bus *events.Bus, log logging.Logger) *Reconciler {
	return &Reconciler{queue: q, attachments: am, client: client, bus: bus, log: log}
}

// Sweep runs one reconciliation pass and always publishes a single
// QueueDrained event, even when items remain queued.
func (r *Reconciler) Sweep(ctx context.Context) (SweepStats, error) {
	log := r.log.With("sweep", uuid.NewString())

	var stats SweepStats
	defer func() {
		r.bus.Publish(events.QueueDrained{
			Synced:  stats.Synced,
			Failed:  stats.Failed,
			Dropped: stats.Dropped,
		})
	}()

	pending, err := r.queue.ListPending(ctx)
	if err != nil {
		log.Warn(ctx, "cannot enumerate offline queue", "err", err)
		return stats, err
	}
	if len(pending) == 0 {
		return stats, nil
	}
	log.Info(ctx, "reconciliation sweep started", "pending", len(pending))

	var mu sync.Mutex
	var g errgroup.Group

	for i := range pending {
		item := pending[i]
		g.Go(func() error {
			outcome := r.reconcile(ctx, log, item)
			mu.Lock()
			switch outcome {
			case itemSynced:
				stats.Synced++
			case itemDropped:
				stats.Dropped++
			default:
				stats.Failed++
			}
			mu.Unlock()
			// per-item failures must not abort sibling items
			return nil
		})
	}
	_ = g.Wait()

	log.Info(ctx, "reconciliation sweep finished",
		"synced", stats.Synced, "failed", stats.Failed, "dropped", stats.Dropped)
	return stats, nil
}

type itemOutcome int

const (
	itemFailed itemOutcome = iota
	itemSynced
	itemDropped
)

func (r *Reconciler) reconcile(ctx context.Context, log logging.Logger, item models.QueuedStory) itemOutcome {
	blob, err := r.attachments.Fetch(ctx, item.PhotoBlobID)
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			err = fmt.Errorf("%w: story %s blob %d", ErrCorruptedAttachment, item.ID, item.PhotoBlobID)
			log.Error(ctx, "dropping unsyncable story", "id", item.ID, "err", err)
			if rmErr := r.queue.Remove(ctx, item.ID, item.PhotoBlobID); rmErr != nil {
				log.Warn(ctx, "failed to drop corrupted story", "id", item.ID, "err", rmErr)
				return itemFailed
			}
			return itemDropped
		}
		log.Warn(ctx, "attachment fetch failed, story left queued", "id", item.ID, "err", err)
		return itemFailed
	}

	if tokenExpired(item.Token, time.Now()) {
		// the server would reject this anyway; skip the round trip but
		// keep the item so the user can re-authenticate and retry
		log.Warn(ctx, "bearer token expired, story left queued", "id", item.ID)
		return itemFailed
	}

	_, err = r.client.SubmitStory(ctx, transport.Submission{
		Description: item.Description,
		Lat:         item.Lat,
		Lon:         item.Lon,
		Photo:       blob.Data,
		PhotoMime:   blob.MimeType,
		Token:       item.Token,
	})
	if err != nil {
		log.Warn(ctx, "story sync failed, left queued", "id", item.ID, "err", err)
		return itemFailed
	}

	if err := r.queue.Remove(ctx, item.ID, item.PhotoBlobID); err != nil {
		// the story reached the server; a leftover record will no-op or
		// duplicate-submit on the next sweep, which the server tolerates
		log.Warn(ctx, "synced story not removed from queue", "id", item.ID, "err", err)
		return itemFailed
	}

	log.Info(ctx, "story synced", "id", item.ID)
	return itemSynced
}

// tokenExpired reports whether tok is a JWT with an exp claim in the
// past. Opaque or malformed tokens are passed through to the server,
// which stays the authority on credential validity.
func tokenExpired(tok string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
