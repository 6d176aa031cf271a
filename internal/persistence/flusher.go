package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ideon/internal/observability"
)

// Source exposes the live state and a version that changes on every
// mutation.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Version() uint64
}

// Flusher is a write-behind worker: it persists the state whenever the
// version moved since the last successful flush.
type Flusher struct {
	store    *Store
	src      Source
	interval time.Duration

	mu      sync.Mutex
	flushed uint64
	primed  bool
}

// NewFlusher creates a Flusher that checks src every interval.
func NewFlusher(store *Store, src Source, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Flusher{store: store, src: src, interval: interval}
}

// MarkClean records the current version as already persisted, e.g. right
// after hydration from stored data.
func (f *Flusher) MarkClean() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = f.src.Version()
	f.primed = true
}

// Flush persists the state if it changed. Failures are logged and returned;
// the next Flush retries.
func (f *Flusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	version := f.src.Version()
	if f.primed && version == f.flushed {
		return nil
	}
	snap, err := f.src.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := f.store.Persist(ctx, snap); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "snapshot flush failed, state kept in memory",
			slog.String("backend", f.store.Backend()),
			slog.String("error", err.Error()),
		)
		return err
	}
	f.flushed, f.primed = version, true
	return nil
}

// Run flushes on every tick until ctx is done, then performs a final flush
// with a fresh context so shutdown does not lose the last writes.
func (f *Flusher) Run(ctx context.Context) error {
	observability.LogAsyncOperationStart(ctx, "snapshot_flusher", map[string]interface{}{
		"interval": f.interval.String(),
		"backend":  f.store.Backend(),
	})
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = f.Flush(ctx)
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := f.Flush(finalCtx)
			cancel()
			observability.LogAsyncOperationEnd(ctx, "snapshot_flusher", nil)
			return err
		}
	}
}
