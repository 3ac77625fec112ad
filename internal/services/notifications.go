package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/syncq"
)

// QueuedNotification is the payload queued for the notification workflow
// endpoint while offline.
type QueuedNotification struct {
	WorkflowKey string          `json:"workflowKey"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// NotificationsService is the outbox for notification workflow triggers.
// Triggers raised while offline are queued and replayed by the drainer.
type NotificationsService struct {
	queue *syncq.Queue
	path  string
	log   logging.Logger
	now   func() time.Time
}

func NewNotificationsService(queue *syncq.Queue, path string, log logging.Logger) *NotificationsService {
	return &NotificationsService{
		queue: queue,
		path:  path,
		log:   log.With("component", "notifications"),
		now:   time.Now,
	}
}

// Queue stores a workflow trigger for delivery once online.
func (s *NotificationsService) Queue(ctx context.Context, workflowKey string, payload json.RawMessage) error {
	n := QueuedNotification{
		WorkflowKey: workflowKey,
		Payload:     payload,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, "notifications", data, s.path, http.MethodPost); err != nil {
		return fmt.Errorf("queue notification %s: %w", workflowKey, err)
	}

	s.log.Debug(ctx, "notification queued for later delivery", "workflowKey", workflowKey)
	return nil
}
