// Package services contains the feature adapters sitting between the UI and
// the offline core: forms, verification attempts, the events snapshot, and
// the notification outbox. Each adapter decides between the direct network
// path and the offline queue, and converts persistence or connectivity
// failures into result values rather than errors, so a caller never crashes
// just because the device is offline.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/netx"
	"github.com/justicebus/offlinesync/internal/syncq"
)

// OfflineMessage is shown to the user when a submission is queued instead of
// sent.
const OfflineMessage = "Your form has been saved and will be submitted when you're back online."

const (
	StatusOK      = "ok"
	StatusOffline = "offline"
)

// SubmitResult is what a form submission returns. When Status is "ok",
// Response holds the server's body as-is; when "offline", Message explains
// that the submission was queued.
type SubmitResult struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// FormsService submits intake forms with offline support.
type FormsService struct {
	queue     *syncq.Queue
	transport netx.Transport
	online    func() bool
	log       logging.Logger
}

func NewFormsService(queue *syncq.Queue, transport netx.Transport, online func() bool, log logging.Logger) *FormsService {
	return &FormsService{
		queue:     queue,
		transport: transport,
		online:    online,
		log:       log.With("component", "forms"),
	}
}

// Submit posts payload to url when online. When offline it queues the
// submission and returns an offline result; it never fails solely because
// the device is offline. Even a queueing error is logged and swallowed so
// the caller still gets a result.
func (s *FormsService) Submit(ctx context.Context, url string, payload json.RawMessage) (SubmitResult, error) {
	if s.online() {
		body, err := s.transport.Do(ctx, http.MethodPost, url, payload, nil)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("submit form: %w", err)
		}
		return SubmitResult{Status: StatusOK, Response: body}, nil
	}

	if _, err := s.queue.Enqueue(ctx, "forms", payload, url, http.MethodPost); err != nil {
		s.log.Error(ctx, "failed to queue offline form submission", "url", url, "error", err)
	}

	return SubmitResult{Status: StatusOffline, Message: OfflineMessage}, nil
}
