package common

// IdempotencyKeyHeaderName is the HTTP header used to carry a queued item's
// idempotency key on replay, so the server can deduplicate repeated replays.
const IdempotencyKeyHeaderName = "Idempotency-Key"
