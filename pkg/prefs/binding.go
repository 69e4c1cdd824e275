package prefs

import (
	"encoding/json"
	"errors"
)

// Binding is a typed accessor pairing one store, one key, and one default
// value. It holds no stored value itself; the store is the sole source of
// truth. The key, store, and default are fixed at construction.
//
// A Binding adds no synchronization on top of the store: Get followed by a
// conditional Set on the same key is not atomic unless the store itself
// provides compare-and-swap semantics (none is assumed here).
type Binding[T any] struct {
	store  Store
	key    string
	def    T
	empty  func(T) bool
	logger Logger
}

// Option customizes a binding at construction.
type Option[T any] func(*Binding[T])

// WithLogger attaches a diagnostic trace logger to the binding.
// If not provided, tracing is a no-op.
func WithLogger[T any](logger Logger) Option[T] {
	return func(b *Binding[T]) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithEmpty marks the binding optional: values for which fn reports true
// are written as a removal of the key instead of a set. Bindings without
// an emptiness test never remove.
func WithEmpty[T any](fn func(T) bool) Option[T] {
	return func(b *Binding[T]) {
		b.empty = fn
	}
}

// EmptyBytes reports whether a byte slice represents absence. It is the
// conventional emptiness test for optional []byte bindings.
func EmptyBytes(b []byte) bool { return len(b) == 0 }

// New declares a required binding: Set always writes, and Get falls back
// to def when the key is absent or the stored value cannot be read as T.
func New[T any](store Store, key string, def T, opts ...Option[T]) (*Binding[T], error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	b := &Binding[T]{
		store:  store,
		key:    key,
		def:    def,
		logger: defaultLogger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// NewOptional declares an optional binding for a pointer-typed preference.
// The default is nil, and setting nil removes the key from the store.
func NewOptional[T any](store Store, key string, opts ...Option[*T]) (*Binding[*T], error) {
	all := make([]Option[*T], 0, len(opts)+1)
	all = append(all, WithEmpty(func(p *T) bool { return p == nil }))
	all = append(all, opts...)
	return New[*T](store, key, nil, all...)
}

// Key returns the key string the binding is fixed to.
func (b *Binding[T]) Key() string { return b.key }

// Default returns the value Get yields when the key is absent.
func (b *Binding[T]) Default() T { return b.def }

// Get resolves the current value for the binding's key. An absent key, or
// a stored value that cannot be interpreted as T, yields the default with
// a nil error. A store-level failure is returned alongside the default and
// is never swallowed.
func (b *Binding[T]) Get() (T, error) {
	raw, err := b.store.Get(b.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return b.def, nil
		}
		b.logger.Errorf("get %s failed: %v", b.key, err)
		return b.def, err
	}
	v, ok := coerce[T](raw)
	if !ok {
		// Unreadable as T reads the same as absent.
		return b.def, nil
	}
	return v, nil
}

// Set persists a value under the binding's key. For optional bindings an
// empty value removes the key instead; removal of an already-absent key is
// a safe no-op. Repeated sets with the same value are idempotent.
func (b *Binding[T]) Set(value T) error {
	if b.empty != nil && b.empty(value) {
		b.logger.Debugf("remove %s", b.key)
		if err := b.store.Remove(b.key); err != nil {
			b.logger.Errorf("remove %s failed: %v", b.key, err)
			return err
		}
		return nil
	}
	b.logger.Debugf("set %s = %v", b.key, value)
	if err := b.store.Set(b.key, value); err != nil {
		b.logger.Errorf("set %s failed: %v", b.key, err)
		return err
	}
	return nil
}

// coerce converts a raw stored value to T. A direct assertion covers
// values that never left the process; values that crossed a JSON boundary
// (numbers as float64, objects as map[string]any, bytes as base64 strings)
// are re-marshaled into T. Anything else does not read as T.
func coerce[T any](raw any) (T, bool) {
	var zero T
	if raw == nil {
		return zero, false
	}
	if v, ok := raw.(T); ok {
		return v, true
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return zero, false
	}
	var target T
	if err := json.Unmarshal(data, &target); err != nil {
		return zero, false
	}
	return target, true
}
