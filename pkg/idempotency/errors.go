package idempotency

import "errors"

var (
	ErrEmptyKey      = errors.New("idempotency key is empty")
	ErrAcquireFailed = errors.New("failed to acquire in-flight lock")
)
