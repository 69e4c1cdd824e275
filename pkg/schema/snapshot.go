// Package schema defines universal data structures shared by the prefstore
// engine, daemon, and client.
package schema

import "time"

// Meta is storage-owned metadata stamped onto every persisted snapshot.
// SnapshotID changes on each save and identifies one on-disk generation.
type Meta struct {
	SnapshotID string    `json:"snapshot_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot is the on-disk form of one namespace: its metadata envelope and
// the flat key-value map it held when saved.
type Snapshot struct {
	Meta   Meta           `json:"meta"`
	Values map[string]any `json:"values"`
}
