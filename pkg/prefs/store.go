// Package prefs implements typed preference bindings over flat key-value stores.
// Bindings pair a key with a default value and fall back to that default when
// the stored value is missing or not usable as the declared type.
package prefs

import "errors"

var (
	// ErrNotFound signals that a key has no entry in a store. Bindings treat
	// it as absence and fall back to their default; it is never surfaced by
	// Binding.Get.
	ErrNotFound = errors.New("prefs: key not found")
	// ErrEmptyKey is returned when a binding is declared with an empty key.
	ErrEmptyKey = errors.New("prefs: key cannot be empty")
	// ErrNilStore is returned when a binding is declared against a nil store.
	ErrNilStore = errors.New("prefs: store is nil")
	// ErrDuplicateKey is returned when a key is bound twice on the same store
	// role of a registry.
	ErrDuplicateKey = errors.New("prefs: key already bound")
)

// Store is the capability interface to one physical key-value store
// instance. Several named instances may coexist (a private one, a shared
// one); a key is unique only within a single instance.
//
// Implementations must guarantee single-key atomicity for each call and
// must hold any JSON-representable value; no ordering or multi-key
// transactional guarantees are assumed by this package.
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound if the
	// key has no entry. Any other error is a store-level failure.
	Get(key string) (any, error)

	// Set stores a raw value under key, replacing any previous entry.
	Set(key string, value any) error

	// Remove deletes the entry for key. Removing an absent key is a
	// no-op and returns nil.
	Remove(key string) error
}
