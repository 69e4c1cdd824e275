package prefs

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Role selects which physical store instance a binding targets.
type Role int

const (
	// Private is the per-installation store, visible to this process only.
	Private Role = iota
	// Shared is the store accessible across related processes, identified
	// in the host environment by a configured namespace name.
	Shared
)

func (r Role) String() string {
	switch r {
	case Private:
		return "private"
	case Shared:
		return "shared"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Registry is the composition root for an application's preference fields.
// It owns the private and shared store handles, records every key declared
// against them in declaration order, and drives the bulk reset. Construct
// one at startup and pass it by reference; there is no package-level state.
type Registry struct {
	private Store
	shared  Store
	logger  Logger

	mu       sync.Mutex
	keys     []string // declaration order, deduped across roles
	declared map[Role]map[string]struct{}
}

// RegistryOption customizes a registry at construction.
type RegistryOption func(*Registry)

// WithRegistryLogger attaches a diagnostic trace logger used by ClearAll
// and inherited as a default by bindings declared through the registry.
func WithRegistryLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry builds a registry over the two store handles. Either handle
// may be nil; declaring a binding against a nil handle fails with
// ErrNilStore.
func NewRegistry(private, shared Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		private:  private,
		shared:   shared,
		logger:   defaultLogger,
		declared: map[Role]map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Bind declares a required preference field on the registry. Each key may
// be bound at most once per role; the same key string may be bound in both
// roles, and those are independent entries.
func Bind[T any](r *Registry, role Role, key string, def T, opts ...Option[T]) (*Binding[T], error) {
	store, err := r.claim(role, key)
	if err != nil {
		return nil, err
	}
	all := make([]Option[T], 0, len(opts)+1)
	all = append(all, WithLogger[T](r.logger))
	all = append(all, opts...)
	return New(store, key, def, all...)
}

// BindOptional declares an optional pointer-typed field with a nil default;
// setting nil removes the key.
func BindOptional[T any](r *Registry, role Role, key string, opts ...Option[*T]) (*Binding[*T], error) {
	all := make([]Option[*T], 0, len(opts)+1)
	all = append(all, WithEmpty(func(p *T) bool { return p == nil }))
	all = append(all, opts...)
	return Bind[*T](r, role, key, nil, all...)
}

// MustBind is Bind for startup wiring: it panics on a declaration error.
func MustBind[T any](r *Registry, role Role, key string, def T, opts ...Option[T]) *Binding[T] {
	b, err := Bind(r, role, key, def, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// MustBindOptional is BindOptional for startup wiring: it panics on a
// declaration error.
func MustBindOptional[T any](r *Registry, role Role, key string, opts ...Option[*T]) *Binding[*T] {
	b, err := BindOptional[T](r, role, key, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// claim validates and records a (role, key) declaration and returns the
// store handle for the role.
func (r *Registry) claim(role Role, key string) (Store, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	store := r.store(role)
	if store == nil {
		return nil, fmt.Errorf("%w for role %s", ErrNilStore, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.declared[role][key]; dup {
		return nil, fmt.Errorf("%w: %s on %s store", ErrDuplicateKey, key, role)
	}
	if r.declared[role] == nil {
		r.declared[role] = map[string]struct{}{}
	}
	r.declared[role][key] = struct{}{}
	if !slices.Contains(r.keys, key) {
		r.keys = append(r.keys, key)
	}
	return store, nil
}

func (r *Registry) store(role Role) Store {
	switch role {
	case Private:
		return r.private
	case Shared:
		return r.shared
	default:
		return nil
	}
}

// Keys returns every key string ever bound, in declaration order. The list
// exists for ClearAll and tooling; normal access goes through bindings.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.keys)
}

// ClearAll removes every declared key from both store instances, whether or
// not the instance holds it, so that every field reads back as its default.
//
// The sweep is best-effort: a store-level failure on one key does not stop
// the remaining removals, and all failures are reported joined into the
// returned error. It is not transactional; if the process dies partway,
// some keys are cleared and others are not, with no rollback.
func (r *Registry) ClearAll() error {
	keys := r.Keys()

	var errs []error
	for _, key := range keys {
		for _, role := range []Role{Private, Shared} {
			store := r.store(role)
			if store == nil {
				continue
			}
			r.logger.Debugf("reset %s/%s", role, key)
			if err := store.Remove(key); err != nil {
				r.logger.Errorf("reset %s/%s failed: %v", role, key, err)
				errs = append(errs, fmt.Errorf("prefs: reset %s/%s: %w", role, key, err))
			}
		}
	}
	return errors.Join(errs...)
}
