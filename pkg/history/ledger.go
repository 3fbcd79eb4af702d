// Package history keeps the bounded, newest-first ledger of exchanges and
// persists it through a store.Store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/store"
)

const (
	DefaultCapacity = 200
	DefaultKey      = "vt_history"
)

type Config struct {
	Store    store.Store
	Key      string
	Capacity int
	Logger   *slog.Logger
}

type Ledger struct {
	mu       sync.RWMutex
	entries  []Exchange
	store    store.Store
	key      string
	capacity int
	log      *slog.Logger

	// detached is set while the stored snapshot could not be read. Nothing
	// is saved until a read succeeds, so intact history is never replaced.
	detached bool
}

func NewLedger(cfg Config) *Ledger {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	return &Ledger{
		store:    cfg.Store,
		key:      cfg.Key,
		capacity: cfg.Capacity,
		log:      logging.NewComponentLogger(cfg.Logger, "history"),
	}
}

// Load replaces the in-memory ledger with the persisted snapshot. A missing
// value yields an empty ledger. A corrupt value also yields an empty ledger,
// and the returned error carries storage_corrupt. Any other read failure
// leaves the ledger empty and detached from the store: mutations stay in
// memory and are merged into the stored snapshot once it can be read.
func (l *Ledger) Load(ctx context.Context) error {
	entries, err := l.read(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.detached = errorsx.HasReason(err, errorsx.ReasonStorageRead)
	if err == nil {
		l.log.Debug("history_loaded", slog.Int("entries", len(entries)))
	}
	return err
}

// read fetches the stored snapshot newest-first. Missing and corrupt values
// both return no entries.
func (l *Ledger) read(ctx context.Context) ([]Exchange, error) {
	raw, err := l.store.Load(ctx, l.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		l.log.Warn("history_load_failed", slog.String("key", l.key), slog.String("error", err.Error()))
		return nil, errorsx.Wrap(err, errorsx.ReasonStorageRead)
	}
	var entries []Exchange
	if err := json.Unmarshal(raw, &entries); err != nil {
		l.log.Warn("history_corrupt", slog.String("key", l.key), slog.String("error", err.Error()))
		return nil, errorsx.Newf(errorsx.ReasonStorageCorrupt, "history: decode %s: %w", l.key, err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}
	return entries, nil
}

// reattach retries the read of a detached ledger and merges the stored
// entries under the in-memory ones. Callers hold l.mu.
func (l *Ledger) reattach(ctx context.Context) error {
	if !l.detached {
		return nil
	}
	stored, err := l.read(ctx)
	if errorsx.HasReason(err, errorsx.ReasonStorageRead) {
		return err
	}
	for _, ex := range stored {
		l.insertLocked(ex)
	}
	l.detached = false
	l.log.Info("history_reattached", slog.Int("entries", len(l.entries)))
	return nil
}

// Append inserts ex by ID so the ledger stays newest-first, trims to capacity
// and persists. A persistence failure is returned but the in-memory ledger
// keeps the entry.
func (l *Ledger) Append(ctx context.Context, ex Exchange) error {
	l.mu.Lock()
	l.insertLocked(ex)
	if err := l.reattach(ctx); err != nil {
		l.mu.Unlock()
		return errorsx.Wrap(err, errorsx.ReasonStorageWrite)
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()
	return l.persist(ctx, snapshot)
}

// Clear empties the ledger and persists the empty snapshot. Clearing is
// explicit, so it also overwrites a snapshot that could not be read.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	l.entries = nil
	l.detached = false
	l.mu.Unlock()
	return l.persist(ctx, []Exchange{})
}

// All returns a newest-first copy of the ledger.
func (l *Ledger) All() []Exchange {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// MaxID returns the largest recorded ID, or 0 for an empty ledger.
func (l *Ledger) MaxID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[0].ID
}

// Export writes the ledger as an indented JSON array.
func (l *Ledger) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l.All())
}

// Detached reports whether the ledger is holding back writes because the
// stored snapshot could not be read.
func (l *Ledger) Detached() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.detached
}

func (l *Ledger) insertLocked(ex Exchange) {
	idx := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].ID <= ex.ID })
	if idx < len(l.entries) && l.entries[idx].ID == ex.ID {
		return
	}
	l.entries = append(l.entries, Exchange{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = ex
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

func (l *Ledger) snapshotLocked() []Exchange {
	out := make([]Exchange, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) persist(ctx context.Context, entries []Exchange) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStorageWrite)
	}
	if err := l.store.Save(ctx, l.key, raw); err != nil {
		l.log.Error("history_persist_failed", slog.String("key", l.key), slog.String("error", err.Error()))
		return errorsx.Wrap(err, errorsx.ReasonStorageWrite)
	}
	return nil
}
