package sdk

import "github.com/shivammaggu/prefstore/pkg/prefs"

// --- Functional Interfaces (Interface Segregation) ---

// Reader defines the basic read operation for the store.
type Reader interface {
	Get(namespace, key string) (any, error)
}

// Writer defines the basic write and delete operations for the store.
type Writer interface {
	Set(namespace, key string, val any) error
	Remove(namespace, key string) error
}

// Enumerator allows discovering namespaces and the keys they hold.
type Enumerator interface {
	Namespaces() ([]string, error)
	Keys(namespace string) ([]string, error)
}

// Exporter allows retrieving bulk data.
type Exporter interface {
	Dump(namespace string) (map[string]any, error)
}

// Orchestrator handles higher-level data operations: wipes and moves.
type Orchestrator interface {
	Wipe(namespace string) error
	Move(srcNamespace, dstNamespace, key string) error
}

// --- Composite Interface ---

// Store is the primary interface for interacting with the data store.
// Both the embedded engine and the network client implement this contract.
type Store interface {
	Reader
	Writer
	Enumerator
	Exporter
	Orchestrator

	// Namespace returns a handle that pins one namespace. The handle is
	// the flat store that registries and typed bindings consume.
	Namespace(name string) prefs.Store
}
