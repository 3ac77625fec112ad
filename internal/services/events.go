package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/models"
	"github.com/justicebus/offlinesync/internal/netx"
	"github.com/justicebus/offlinesync/internal/store"
	"github.com/justicebus/offlinesync/internal/syncq"
)

// snapshotKey is the fixed key under which the single events snapshot lives.
const snapshotKey = "current"

// EventsService keeps one cached copy of the events dataset so clinic
// schedules stay readable on the road. Online fetches overwrite the cache;
// offline reads serve it.
type EventsService struct {
	store      store.Store
	transport  netx.Transport
	queue      *syncq.Queue
	eventsPath string
	online     func() bool
	log        logging.Logger
	now        func() time.Time
}

func NewEventsService(st store.Store, transport netx.Transport, queue *syncq.Queue, eventsPath string, online func() bool, log logging.Logger) *EventsService {
	return &EventsService{
		store:      st,
		transport:  transport,
		queue:      queue,
		eventsPath: eventsPath,
		online:     online,
		log:        log.With("component", "events"),
		now:        time.Now,
	}
}

// StoreSnapshot overwrites the cached snapshot.
func (s *EventsService) StoreSnapshot(ctx context.Context, snapshot models.EventsSnapshot) error {
	value, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode events snapshot: %w", err)
	}
	if _, err := s.store.Put(ctx, store.PartitionEvents, snapshotKey, value); err != nil {
		return fmt.Errorf("store events snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the cached snapshot, or nil when none has been stored.
func (s *EventsService) Snapshot(ctx context.Context) (*models.EventsSnapshot, error) {
	value, err := s.store.Get(ctx, store.PartitionEvents, snapshotKey)
	if err != nil {
		return nil, fmt.Errorf("read events snapshot: %w", err)
	}
	if value == nil {
		return nil, nil
	}
	var snapshot models.EventsSnapshot
	if err := json.Unmarshal(value, &snapshot); err != nil {
		return nil, fmt.Errorf("decode events snapshot: %w", err)
	}
	return &snapshot, nil
}

// FetchAndCache fetches the events dataset when online, refreshes the cache,
// and returns the fresh snapshot. Offline, or when the fetch fails, it falls
// back to whatever is cached.
func (s *EventsService) FetchAndCache(ctx context.Context) (*models.EventsSnapshot, error) {
	if !s.online() {
		return s.Snapshot(ctx)
	}

	body, err := s.transport.Do(ctx, http.MethodGet, s.eventsPath, nil, nil)
	if err != nil {
		s.log.Warn(ctx, "events fetch failed, serving cached snapshot", "error", err)
		return s.Snapshot(ctx)
	}

	var snapshot models.EventsSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		s.log.Warn(ctx, "events response unreadable, serving cached snapshot", "error", err)
		return s.Snapshot(ctx)
	}
	snapshot.LastUpdated = s.now().UTC().Format(time.RFC3339)

	if err := s.StoreSnapshot(ctx, snapshot); err != nil {
		s.log.Warn(ctx, "failed to refresh events cache", "error", err)
	}
	return &snapshot, nil
}

// QueueUpdate enqueues an events dataset update for replay once online.
func (s *EventsService) QueueUpdate(ctx context.Context, snapshot models.EventsSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode events update: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, "events", data, s.eventsPath, http.MethodPost); err != nil {
		return fmt.Errorf("queue events update: %w", err)
	}
	return nil
}
