// Package common defines shared constants and sentinel errors used across
// the offline core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrStoreUnavailable marks failures of the local storage tier. Callers
	// treat it as a soft failure and fall back rather than crash.
	ErrStoreUnavailable = errors.New("local store unavailable")

	// ErrReplayFailed marks a network exchange that did not reach a 2xx
	// response. Items failing with it stay queued.
	ErrReplayFailed = errors.New("replay failed")
)
