// Package engine implements the embedded storage engine for prefstore: a
// namespace-partitioned in-memory map with per-namespace JSON snapshot
// persistence. Both the daemon and the embedded client mode run on it.
package engine

import (
	"errors"
	"strings"
)

var (
	// ErrNamespaceNotFound is returned by namespace-level operations when a
	// namespace holds no data.
	ErrNamespaceNotFound = errors.New("engine: namespace not found")
	// ErrInvalidNamespace is returned when a namespace name cannot serve
	// as a snapshot file name: empty, a dot name, or containing a path
	// separator.
	ErrInvalidNamespace = errors.New("engine: invalid namespace")
)

func checkNamespace(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidNamespace
	}
	return nil
}
