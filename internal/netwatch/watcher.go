// Package netwatch tracks connectivity. It periodically probes the backend
// and keeps a two-state machine (online/offline). When a probe flips the
// state from offline to online, registered callbacks fire so queued work can
// be drained. Kick forces an immediate probe, standing in for "the user came
// back to the app" style triggers.
package netwatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justicebus/offlinesync/internal/logging"
)

// Mode is the connectivity state.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ProbeFunc reports nil when the backend is reachable.
type ProbeFunc func(ctx context.Context) error

type Watcher struct {
	probe        ProbeFunc
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger

	online atomic.Bool

	mu        sync.Mutex
	onOnline  []func(context.Context)
	kick      chan struct{}
	firstSeen bool
}

func New(probe ProbeFunc, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{
		probe:        probe,
		interval:     interval,
		probeTimeout: 3 * time.Second,
		log:          log.With("component", "netwatch"),
		kick:         make(chan struct{}, 1),
	}
}

// OnOnline registers fn to run on every offline-to-online transition.
// Callbacks registered after Run has started miss earlier transitions.
func (w *Watcher) OnOnline(fn func(context.Context)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onOnline = append(w.onOnline, fn)
}

// Online reports the last observed state.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Kick requests an immediate probe. Safe to call from any goroutine; extra
// kicks while one is pending are dropped.
func (w *Watcher) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run probes once immediately, then on every tick or kick, until ctx is
// cancelled. It blocks; start it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.kick:
			w.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, w.probeTimeout)
	err := w.probe(probeCtx)
	cancel()

	nowOnline := err == nil
	wasOnline := w.online.Swap(nowOnline)

	w.mu.Lock()
	first := !w.firstSeen
	w.firstSeen = true
	callbacks := append([]func(context.Context){}, w.onOnline...)
	w.mu.Unlock()

	if nowOnline == wasOnline && !first {
		return
	}

	if nowOnline {
		w.log.Info(ctx, "switched mode", "mode", ModeOnline)
		for _, fn := range callbacks {
			fn(ctx)
		}
	} else {
		w.log.Info(ctx, "switched mode", "mode", ModeOffline)
	}
}
