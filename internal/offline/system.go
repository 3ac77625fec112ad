// Package offline wires the offline core together: durable store, sync
// queue, connectivity watcher, and the feature adapters. System.Init runs
// the bootstrap sequence fail-soft: a failing step is logged and skipped,
// never blocking the steps after it.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sethvargo/go-retry"

	"github.com/justicebus/offlinesync/internal/config"
	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/models"
	"github.com/justicebus/offlinesync/internal/netwatch"
	"github.com/justicebus/offlinesync/internal/netx"
	"github.com/justicebus/offlinesync/internal/services"
	"github.com/justicebus/offlinesync/internal/store"
	"github.com/justicebus/offlinesync/internal/syncq"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// migratedMarkerKey guards the one-shot legacy migration: once set in the
// meta partition, repeated bootstraps will not migrate again.
const migratedMarkerKey = "legacy_migrated"

// System owns the offline subsystem. Construct with New, then call Init once
// at startup and Close on shutdown.
type System struct {
	cfg *config.Config
	log logging.Logger

	store   store.Store
	legacy  *store.FileStore
	queue   *syncq.Queue
	watcher *netwatch.Watcher

	transportOverride netx.Transport

	Forms         *services.FormsService
	Verification  *services.VerificationService
	Events        *services.EventsService
	Notifications *services.NotificationsService
}

// Option configures a System.
type Option func(*System)

// WithTransportOverride replaces the HTTP transport (tests).
func WithTransportOverride(t netx.Transport) Option {
	return func(s *System) { s.transportOverride = t }
}

// New opens the storage tiers and wires queue, watcher, and adapters. It
// fails only when no storage tier at all is usable.
func New(ctx context.Context, cfg *config.Config, log logging.Logger, opts ...Option) (*System, error) {
	s := &System{cfg: cfg, log: log.With("component", "offline")}
	for _, opt := range opts {
		opt(s)
	}

	var transport netx.Transport = netx.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	if s.transportOverride != nil {
		transport = s.transportOverride
	}

	st, err := store.Open(ctx, cfg.DatabasePath, cfg.DataDir, log)
	if err != nil {
		return nil, fmt.Errorf("no usable storage tier: %w", err)
	}
	s.store = st

	// The flat tier doubles as the fallback target for adapter writes and
	// as the source of legacy data to migrate. When the primary already is
	// the flat tier there is nothing to fall back to or migrate from.
	if _, isFlat := st.(*store.FileStore); !isFlat {
		legacy, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			s.log.Warn(ctx, "flat fallback tier unavailable", "error", err)
		} else {
			s.legacy = legacy
		}
	}

	s.queue = syncq.New(st, transport, log, syncq.WithRetryPolicy(func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(cfg.RequestTimeout/4))
	}))

	probe := func(ctx context.Context) error {
		_, err := transport.Do(ctx, http.MethodGet, cfg.HealthPath, nil, nil)
		return err
	}
	s.watcher = netwatch.New(probe, cfg.OnlineCheckInterval, log)

	online := s.watcher.Online

	s.Forms = services.NewFormsService(s.queue, transport, online, log)
	var fallback store.Store
	if s.legacy != nil {
		fallback = s.legacy
	}
	s.Verification = services.NewVerificationService(st, fallback, transport, cfg.VerifyPath, log,
		services.WithAttemptTTL(cfg.VerificationTTL))
	s.Events = services.NewEventsService(st, transport, s.queue, cfg.EventsPath, online, log)
	s.Notifications = services.NewNotificationsService(s.queue, cfg.NotificationsPath, log)

	return s, nil
}

// Init runs the bootstrap sequence:
//  1. migrate legacy flat-file data into the structured store (one-shot,
//     guarded by a marker in the meta partition)
//  2. register the drain triggers with the connectivity watcher
//  3. start the watcher, whose first probe drains immediately when the
//     backend is already reachable
//
// Every step is fail-soft; an error is logged and the next step still runs.
func (s *System) Init(ctx context.Context) {
	if err := s.migrateLegacy(ctx); err != nil {
		s.log.Warn(ctx, "legacy migration failed, continuing", "error", err)
	}

	s.watcher.OnOnline(func(ctx context.Context) {
		if _, err := s.queue.Drain(ctx); err != nil {
			s.log.Warn(ctx, "drain failed", "error", err)
		}
		if n := s.Verification.SyncAttempts(ctx); n > 0 {
			s.log.Info(ctx, "processed offline verification attempts", "count", n)
		}
	})

	go s.watcher.Run(ctx)
}

// Drain triggers one queue pass by hand. Useful as a trigger of last resort
// when no connectivity event fires.
func (s *System) Drain(ctx context.Context) (syncq.DrainResult, error) {
	return s.queue.Drain(ctx)
}

// Kick asks the watcher for an immediate connectivity probe, mirroring a
// "user returned to the app" signal.
func (s *System) Kick() {
	s.watcher.Kick()
}

// Online reports the last observed connectivity state.
func (s *System) Online() bool {
	return s.watcher.Online()
}

// Pending returns the not-yet-replayed queue items.
func (s *System) Pending(ctx context.Context) ([]models.SyncQueueItem, error) {
	return s.queue.Pending(ctx)
}

func (s *System) Close() error {
	return s.store.Close()
}

// migrateLegacy promotes records written to the flat tier (by older app
// versions, or while the structured store was unavailable) into the
// structured store, then marks the migration done.
func (s *System) migrateLegacy(ctx context.Context) error {
	if s.legacy == nil {
		return nil
	}

	marker, err := s.store.Get(ctx, store.PartitionMeta, migratedMarkerKey)
	if err != nil {
		return fmt.Errorf("read migration marker: %w", err)
	}
	if marker != nil {
		return nil
	}

	moved := 0
	for _, partition := range []string{store.PartitionSyncQueue, store.PartitionVerifications} {
		recs, err := s.legacy.GetAll(ctx, partition)
		if err != nil {
			s.log.Warn(ctx, "cannot read legacy partition", "partition", partition, "error", err)
			continue
		}
		for _, rec := range recs {
			key := rec.Key
			if partition == store.PartitionSyncQueue {
				// Queue keys are store-assigned; let the structured
				// store renumber them.
				key = ""
			}
			if _, err := s.store.Put(ctx, partition, key, rec.Value); err != nil {
				return fmt.Errorf("migrate %s/%s: %w", partition, rec.Key, err)
			}
			if err := s.legacy.Delete(ctx, partition, rec.Key); err != nil {
				s.log.Warn(ctx, "migrated record left behind in legacy tier",
					"partition", partition, "key", rec.Key, "error", err)
			}
			moved++
		}
	}

	if _, err := s.store.Put(ctx, store.PartitionMeta, migratedMarkerKey, json.RawMessage(`"1"`)); err != nil {
		return fmt.Errorf("write migration marker: %w", err)
	}

	if moved > 0 {
		s.log.Info(ctx, "migrated legacy offline data", "records", moved)
	}
	return nil
}
