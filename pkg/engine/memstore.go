package engine

import (
	"slices"
	"sync"

	"github.com/shivammaggu/prefstore/pkg/prefs"
)

// MemStore is the thread-safe in-memory engine.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [namespace][key]value
	data      map[string]map[string]any
	persister *Persistence
	logger    prefs.Logger
	wg        sync.WaitGroup

	// Per-namespace write sequencing for background saves. seq counts
	// mutations and is guarded by mu; saved holds the last sequence that
	// reached disk and is guarded by saveMu.
	saveMu sync.Mutex
	seq    map[string]uint64
	saved  map[string]uint64
}

// Option customizes a MemStore at construction.
type Option func(*MemStore)

// WithLogger attaches a trace logger, used mainly to report background
// persistence failures.
func WithLogger(logger prefs.Logger) Option {
	return func(m *MemStore) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and a persister; either may be nil.
func NewMemStore(initial map[string]map[string]any, p *Persistence, opts ...Option) *MemStore {
	if initial == nil {
		initial = make(map[string]map[string]any)
	}
	m := &MemStore{
		data:      initial,
		persister: p,
		logger:    prefs.NopLogger(),
		seq:       make(map[string]uint64),
		saved:     make(map[string]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Get retrieves a value. Missing namespaces and missing keys both report
// prefs.ErrNotFound, so typed bindings fall back to their defaults either way.
func (m *MemStore) Get(namespace, key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.data[namespace]
	if !ok {
		return nil, prefs.ErrNotFound
	}

	val, ok := ns[key]
	if !ok {
		return nil, prefs.ErrNotFound
	}

	return val, nil
}

// Set stores a value, creating the namespace on first write.
func (m *MemStore) Set(namespace, key string, val any) error {
	if err := checkNamespace(namespace); err != nil {
		return err
	}

	m.mu.Lock()
	if m.data[namespace] == nil {
		m.data[namespace] = make(map[string]any)
	}
	m.data[namespace][key] = val

	// Deep copy the namespace's state to save safely in background
	snapshot := m.copyNamespace(namespace)
	seq := m.nextSeq(namespace)
	m.mu.Unlock()

	m.persist(namespace, snapshot, seq)
	return nil
}

// Remove deletes a key. Removing an absent key is not an error.
func (m *MemStore) Remove(namespace, key string) error {
	m.mu.Lock()
	ns, ok := m.data[namespace]
	if ok {
		delete(ns, key)
	}
	snapshot := m.copyNamespace(namespace)
	seq := m.nextSeq(namespace)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	m.persist(namespace, snapshot, seq)
	return nil
}

// nextSeq advances a namespace's write sequence.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) nextSeq(namespace string) uint64 {
	m.seq[namespace]++
	return m.seq[namespace]
}

// persist hands a namespace snapshot to the persister in the background.
// Saves are sequenced per namespace; a save that is no longer the newest
// is dropped instead of written.
func (m *MemStore) persist(namespace string, values map[string]any, seq uint64) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.saveMu.Lock()
		defer m.saveMu.Unlock()
		if seq <= m.saved[namespace] {
			return
		}
		if err := m.persister.SaveNamespace(namespace, values); err != nil {
			m.logger.Errorf("persist namespace %s: %v", namespace, err)
			return
		}
		m.saved[namespace] = seq
	}()
}

// copyNamespace creates a deep copy of a namespace's data.
// It MUST be called while holding m.mu.Lock or m.mu.RLock.
func (m *MemStore) copyNamespace(namespace string) map[string]any {
	original, ok := m.data[namespace]
	if !ok {
		return nil
	}

	nsCopy := make(map[string]any, len(original))
	for k, v := range original {
		nsCopy[k] = v
	}
	return nsCopy
}

// Namespaces returns the names of all namespaces in the store, sorted.
func (m *MemStore) Namespaces() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []string
	for name := range m.data {
		list = append(list, name)
	}
	slices.Sort(list)
	return list, nil
}

// Keys returns all keys in a namespace, sorted. An unknown namespace yields
// an empty list.
func (m *MemStore) Keys(namespace string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []string
	for k := range m.data[namespace] {
		list = append(list, k)
	}
	slices.Sort(list)
	return list, nil
}

// Dump returns all keys and values of one namespace.
// Useful for migrations, exports, or batch processing.
func (m *MemStore) Dump(namespace string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.data[namespace]
	if !ok {
		return nil, ErrNamespaceNotFound
	}

	// Return a copy to prevent external mutation of the internal map
	out := make(map[string]any, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out, nil
}

// Wipe drops a namespace and all its keys. Wiping an absent namespace is
// not an error.
func (m *MemStore) Wipe(namespace string) error {
	m.mu.Lock()
	_, ok := m.data[namespace]
	delete(m.data, namespace)
	seq := m.nextSeq(namespace)
	m.mu.Unlock()

	if !ok || m.persister == nil {
		return nil
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.saveMu.Lock()
		defer m.saveMu.Unlock()
		if seq <= m.saved[namespace] {
			return
		}
		if err := m.persister.Drop(namespace); err != nil {
			m.logger.Errorf("drop namespace %s: %v", namespace, err)
			return
		}
		m.saved[namespace] = seq
	}()
	return nil
}

// Move transfers a key and its value from a source namespace to a
// destination namespace.
func (m *MemStore) Move(srcNamespace, dstNamespace, key string) error {
	if err := checkNamespace(dstNamespace); err != nil {
		return err
	}

	m.mu.Lock()
	src, ok := m.data[srcNamespace]
	if !ok {
		m.mu.Unlock()
		return prefs.ErrNotFound
	}
	val, ok := src[key]
	if !ok {
		m.mu.Unlock()
		return prefs.ErrNotFound
	}
	delete(src, key)
	if m.data[dstNamespace] == nil {
		m.data[dstNamespace] = make(map[string]any)
	}
	m.data[dstNamespace][key] = val

	srcSnapshot := m.copyNamespace(srcNamespace)
	dstSnapshot := m.copyNamespace(dstNamespace)
	srcSeq := m.nextSeq(srcNamespace)
	dstSeq := m.nextSeq(dstNamespace)
	m.mu.Unlock()

	m.persist(srcNamespace, srcSnapshot, srcSeq)
	m.persist(dstNamespace, dstSnapshot, dstSeq)
	return nil
}

// Namespace returns a handle that pins one namespace, so callers work with
// flat keys. The handle is what application registries and typed bindings
// are wired against.
func (m *MemStore) Namespace(name string) prefs.Store {
	return &nsScope{store: m, name: name}
}

type nsScope struct {
	store *MemStore
	name  string
}

func (s *nsScope) Get(key string) (any, error) {
	return s.store.Get(s.name, key)
}

func (s *nsScope) Set(key string, val any) error {
	return s.store.Set(s.name, key, val)
}

func (s *nsScope) Remove(key string) error {
	return s.store.Remove(s.name, key)
}
