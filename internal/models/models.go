// Package models defines the shapes persisted by the offline core: queued
// sync operations, stored verification attempts, and the cached events
// snapshot. JSON field names match the payloads the portal's API expects.
package models

import "encoding/json"

// SyncQueueItem is one pending "replay later" operation. The item's ID is the
// store record key (auto-assigned on enqueue) and is not serialized into the
// stored payload.
type SyncQueueItem struct {
	ID             string          `json:"-"`
	StoreType      string          `json:"storeType"`
	Data           json.RawMessage `json:"data"`
	Timestamp      string          `json:"timestamp"`
	Synced         bool            `json:"synced"`
	APIPath        string          `json:"apiPath"`
	Method         string          `json:"method"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

// VerificationAttempt is a phone verification submitted while offline,
// stored for a single later replay. ID is phone + "_" + epoch millis.
type VerificationAttempt struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}

// Event is a single Justice Bus clinic event.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Status      string `json:"status,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
}

// ContactInfo is the clinic contact block served alongside events.
type ContactInfo struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// EventsSnapshot is the single cached copy of the events dataset. At most one
// snapshot exists; every successful online fetch overwrites it.
type EventsSnapshot struct {
	Events      []Event     `json:"events"`
	LastUpdated string      `json:"lastUpdated"`
	ContactInfo ContactInfo `json:"contactInfo"`
}
