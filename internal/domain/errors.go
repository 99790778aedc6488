package domain

import "errors"

// Error is a stable, comparable failure kind. Wrap it with %w to add detail.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInvalidInput     Error = "invalid input"
	ErrUnauthenticated  Error = "unauthenticated"
	ErrNotFound         Error = "handoff code not found"
	ErrExpired          Error = "handoff code expired"
	ErrAlreadyUsed      Error = "handoff code already used"
	ErrRateLimited      Error = "rate limit exceeded"
	ErrTransientStorage Error = "storage unavailable"
	ErrUpstreamFailure  Error = "upstream failure"

	// ErrCodeCollision is returned by stores when an insert hits an existing code.
	ErrCodeCollision Error = "handoff code collision"
)

// Kind names as they appear on the wire.
const (
	KindInvalidInput     = "invalid_input"
	KindUnauthenticated  = "unauthenticated"
	KindNotFound         = "not_found"
	KindExpired          = "expired"
	KindAlreadyUsed      = "already_used"
	KindRateLimited      = "rate_limited"
	KindTransientStorage = "transient_storage"
	KindUpstreamFailure  = "upstream_failure"
	KindInternal         = "internal"
)

var kinds = []struct {
	err  Error
	kind string
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrNotFound, KindNotFound},
	{ErrExpired, KindExpired},
	{ErrAlreadyUsed, KindAlreadyUsed},
	{ErrRateLimited, KindRateLimited},
	{ErrTransientStorage, KindTransientStorage},
	{ErrCodeCollision, KindTransientStorage},
	{ErrUpstreamFailure, KindUpstreamFailure},
}

// KindOf returns the machine-readable kind for err, or KindInternal when err
// does not wrap any known Error.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
