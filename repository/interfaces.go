package repository

import "errors"

// ErrStoreKeyNotFound is returned when no entry exists under the requested key.
var ErrStoreKeyNotFound = errors.New("store key not found")

// ErrQuotaExceeded is returned when a write would push the durable store past
// its configured byte ceiling. Callers are expected to treat this as a
// degraded-but-survivable condition, not a hard failure.
var ErrQuotaExceeded = errors.New("durable store quota exceeded")

// RegistryStoreInterface defines the methods for durable registry storage.
// The store is a finite-capacity, string-keyed text store; it knows nothing
// about baseline semantics.
type RegistryStoreInterface interface {
	Get(key string) (string, error)
	Set(key, value string) error
	UsedBytes() (int64, error)
}
