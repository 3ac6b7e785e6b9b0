package session

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

// Writer performs fire-and-forget snapshot writes on a bounded worker
// pool. A write failure is logged and nothing else: gameplay never blocks
// on persistence and never rolls back because of it.
type Writer struct {
	store   Store
	pool    *ants.Pool
	logger  *zap.Logger
	timeout time.Duration
}

// NewWriter creates a writer with the given worker count. The pool is
// non-blocking: if every worker is busy the snapshot is dropped, which is
// acceptable because the next mutation writes a fresher one.
func NewWriter(store Store, workers int, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Writer{
		store:   store,
		pool:    pool,
		logger:  logger,
		timeout: defaultWriteTimeout,
	}, nil
}

// Enqueue schedules a snapshot write. It never blocks the caller.
func (w *Writer) Enqueue(snap *Snapshot) {
	if w == nil || snap == nil {
		return
	}
	err := w.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.store.Save(ctx, snap); err != nil {
			w.logger.Warn("snapshot write failed",
				zap.String("room_id", snap.RoomID),
				zap.Error(err))
		}
	})
	if err != nil {
		w.logger.Warn("snapshot dropped, pool saturated",
			zap.String("room_id", snap.RoomID),
			zap.Error(err))
	}
}

// EnqueueDelete schedules removal of a room's snapshot. Like Enqueue it
// never blocks the caller.
func (w *Writer) EnqueueDelete(roomID string) {
	if w == nil || roomID == "" {
		return
	}
	err := w.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.store.Delete(ctx, roomID); err != nil {
			w.logger.Warn("snapshot delete failed",
				zap.String("room_id", roomID),
				zap.Error(err))
		}
	})
	if err != nil {
		w.logger.Warn("snapshot delete dropped, pool saturated",
			zap.String("room_id", roomID),
			zap.Error(err))
	}
}

// Close releases the worker pool. Queued writes may be abandoned.
func (w *Writer) Close() {
	if w != nil && w.pool != nil {
		w.pool.Release()
	}
}
