package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shivammaggu/prefstore/pkg/schema"
)

// Persistence handles the disk I/O for the MemStore. Each namespace lives
// in its own JSON snapshot file under the data directory.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

// NewPersistence initializes a persistence handler.
func NewPersistence(dir string) (*Persistence, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

// SaveNamespace writes a single namespace's snapshot to a JSON file
// atomically. Every save stamps a fresh snapshot ID so on-disk generations
// stay distinguishable.
func (p *Persistence) SaveNamespace(namespace string, values map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := schema.Snapshot{
		Meta: schema.Meta{
			SnapshotID: uuid.NewString(),
			UpdatedAt:  time.Now().UTC(),
		},
		Values: values,
	}

	bytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	filePath := filepath.Join(p.DataDir, fmt.Sprintf("%s.json", namespace))
	tempPath := filePath + ".tmp"

	// Write to a temporary file first
	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return err
	}

	// Atomic rename: if the power fails, you have either the old file or
	// the new one, never a corrupt one.
	return os.Rename(tempPath, filePath)
}

// Drop removes a namespace's snapshot file. A missing file is not an error.
func (p *Persistence) Drop(namespace string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(filepath.Join(p.DataDir, fmt.Sprintf("%s.json", namespace)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// LoadAll returns the values of every namespace snapshot found in the data
// directory.
func (p *Persistence) LoadAll() (map[string]map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string]map[string]any)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		namespace := file.Name()[:len(file.Name())-5] // Strip .json
		if err := checkNamespace(namespace); err != nil {
			log.Printf("Warning: Skipping snapshot file %s: %v", file.Name(), err)
			continue
		}

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			log.Printf("Warning: Could not read namespace file %s: %v", file.Name(), err)
			continue // Skip corrupted/unreadable files
		}

		var snap schema.Snapshot
		if err := json.Unmarshal(content, &snap); err != nil {
			log.Printf("Warning: Could not unmarshal snapshot from %s: %v", file.Name(), err)
			continue
		}
		if snap.Values == nil {
			snap.Values = make(map[string]any)
		}
		allData[namespace] = snap.Values
	}
	return allData, nil
}
