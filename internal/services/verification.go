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
)

// DefaultAttemptTTL is how long a stored verification attempt stays
// replayable. Older attempts are purged without a network call: stale codes
// must not be retried.
const DefaultAttemptTTL = 24 * time.Hour

// VerificationService stores phone verification attempts made while offline
// and replays them when connectivity returns. Each stored attempt is replayed
// at most once and then deleted regardless of the outcome.
type VerificationService struct {
	store      store.Store
	fallback   store.Store // flat tier; nil when the primary already is one
	transport  netx.Transport
	verifyPath string
	ttl        time.Duration
	log        logging.Logger
	now        func() time.Time
}

// VerificationOption configures a VerificationService.
type VerificationOption func(*VerificationService)

// WithAttemptTTL overrides the expiration window.
func WithAttemptTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) { s.ttl = ttl }
}

// WithVerificationClock overrides the time source (tests).
func WithVerificationClock(now func() time.Time) VerificationOption {
	return func(s *VerificationService) { s.now = now }
}

func NewVerificationService(primary, fallback store.Store, transport netx.Transport, verifyPath string, log logging.Logger, opts ...VerificationOption) *VerificationService {
	s := &VerificationService{
		store:      primary,
		fallback:   fallback,
		transport:  transport,
		verifyPath: verifyPath,
		ttl:        DefaultAttemptTTL,
		log:        log.With("component", "verification"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreAttempt persists a verification attempt for later replay. On primary
// store failure it falls back to the flat tier so the attempt is not silently
// lost. Reports whether the attempt was stored somewhere.
func (s *VerificationService) StoreAttempt(ctx context.Context, phone, code string) bool {
	ts := s.now().UnixMilli()
	attempt := models.VerificationAttempt{
		ID:        fmt.Sprintf("%s_%d", phone, ts),
		Phone:     phone,
		Code:      code,
		Timestamp: ts,
	}

	value, err := json.Marshal(attempt)
	if err != nil {
		s.log.Error(ctx, "failed to encode verification attempt", "error", err)
		return false
	}

	if _, err := s.store.Put(ctx, store.PartitionVerifications, attempt.ID, value); err == nil {
		return true
	} else if s.fallback != nil {
		s.log.Warn(ctx, "primary store rejected verification attempt, using fallback tier", "error", err)
	} else {
		s.log.Error(ctx, "failed to store verification attempt", "error", err)
	}

	if s.fallback == nil {
		return false
	}
	if _, err := s.fallback.Put(ctx, store.PartitionVerifications, attempt.ID, value); err != nil {
		s.log.Error(ctx, "fallback tier rejected verification attempt", "error", err)
		return false
	}
	return true
}

// SyncAttempts replays stored verification attempts. Expired attempts are
// deleted without a network call. Every replayed attempt is deleted
// afterwards whatever the outcome, so a code is submitted at most once.
// Returns the number of attempts that were actually replayed (not
// necessarily accepted).
func (s *VerificationService) SyncAttempts(ctx context.Context) int {
	processed := s.syncTier(ctx, s.store)
	if s.fallback != nil {
		processed += s.syncTier(ctx, s.fallback)
	}
	return processed
}

func (s *VerificationService) syncTier(ctx context.Context, tier store.Store) int {
	recs, err := tier.GetAll(ctx, store.PartitionVerifications)
	if err != nil {
		s.log.Warn(ctx, "cannot load stored verification attempts", "error", err)
		return 0
	}

	processed := 0
	for _, rec := range recs {
		var attempt models.VerificationAttempt
		if err := json.Unmarshal(rec.Value, &attempt); err != nil {
			s.log.Warn(ctx, "dropping malformed verification attempt", "id", rec.Key, "error", err)
			_ = tier.Delete(ctx, store.PartitionVerifications, rec.Key)
			continue
		}

		if s.expired(attempt) {
			s.log.Info(ctx, "purging expired verification attempt", "id", attempt.ID)
			_ = tier.Delete(ctx, store.PartitionVerifications, rec.Key)
			continue
		}

		body, err := json.Marshal(map[string]string{"phone": attempt.Phone, "code": attempt.Code})
		if err != nil {
			_ = tier.Delete(ctx, store.PartitionVerifications, rec.Key)
			continue
		}

		if _, err := s.transport.Do(ctx, http.MethodPost, s.verifyPath, body, nil); err != nil {
			s.log.Warn(ctx, "verification replay failed", "id", attempt.ID, "error", err)
		}

		// At most one replay per attempt: delete whatever happened.
		_ = tier.Delete(ctx, store.PartitionVerifications, rec.Key)
		processed++
	}
	return processed
}

// HasPending reports whether any non-expired verification attempt is stored.
func (s *VerificationService) HasPending(ctx context.Context) bool {
	for _, tier := range []store.Store{s.store, s.fallback} {
		if tier == nil {
			continue
		}
		recs, err := tier.GetAll(ctx, store.PartitionVerifications)
		if err != nil {
			continue
		}
		for _, rec := range recs {
			var attempt models.VerificationAttempt
			if err := json.Unmarshal(rec.Value, &attempt); err != nil {
				continue
			}
			if !s.expired(attempt) {
				return true
			}
		}
	}
	return false
}

func (s *VerificationService) expired(attempt models.VerificationAttempt) bool {
	age := s.now().UnixMilli() - attempt.Timestamp
	return age > s.ttl.Milliseconds()
}
