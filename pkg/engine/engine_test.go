package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shivammaggu/prefstore/pkg/prefs"
	"github.com/shivammaggu/prefstore/pkg/schema"
)

func TestMemStore_GetSetRemove(t *testing.T) {
	ms := NewMemStore(nil, nil)

	namespace := "test-namespace"
	key := "test-key"
	val := "test-value"

	// Test Set
	err := ms.Set(namespace, key, val)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Test Get
	got, err := ms.Get(namespace, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != val {
		t.Errorf("Expected %v, got %v", val, got)
	}

	// Test Get non-existent
	_, err = ms.Get(namespace, "non-existent")
	if err != prefs.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	_, err = ms.Get("non-existent", key)
	if err != prefs.ErrNotFound {
		t.Errorf("Expected ErrNotFound for unknown namespace, got %v", err)
	}

	// Test Remove
	err = ms.Remove(namespace, key)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	_, err = ms.Get(namespace, key)
	if err != prefs.ErrNotFound {
		t.Errorf("Expected ErrNotFound after remove, got %v", err)
	}

	// Remove is idempotent
	if err := ms.Remove(namespace, key); err != nil {
		t.Errorf("Second Remove failed: %v", err)
	}
	if err := ms.Remove("non-existent", key); err != nil {
		t.Errorf("Remove on unknown namespace failed: %v", err)
	}
}

func TestMemStore_InvalidNamespace(t *testing.T) {
	ms := NewMemStore(nil, nil)

	if err := ms.Set("", "k", "v"); err != ErrInvalidNamespace {
		t.Errorf("Expected ErrInvalidNamespace for empty name, got %v", err)
	}
	if err := ms.Set("../escape", "k", "v"); err != ErrInvalidNamespace {
		t.Errorf("Expected ErrInvalidNamespace for path separator, got %v", err)
	}
	if err := ms.Set(".", "k", "v"); err != ErrInvalidNamespace {
		t.Errorf("Expected ErrInvalidNamespace for dot name, got %v", err)
	}
	if err := ms.Set("..", "k", "v"); err != ErrInvalidNamespace {
		t.Errorf("Expected ErrInvalidNamespace for dot-dot name, got %v", err)
	}
}

func TestMemStore_NamespacesAndKeys(t *testing.T) {
	ms := NewMemStore(nil, nil)

	ms.Set("ns2", "k2", "v2")
	ms.Set("ns1", "k1", "v1")
	ms.Set("ns1", "k0", "v0")

	namespaces, _ := ms.Namespaces()
	if len(namespaces) != 2 || namespaces[0] != "ns1" || namespaces[1] != "ns2" {
		t.Errorf("Expected sorted [ns1 ns2], got %v", namespaces)
	}

	keys, _ := ms.Keys("ns1")
	if len(keys) != 2 || keys[0] != "k0" || keys[1] != "k1" {
		t.Errorf("Expected sorted [k0 k1], got %v", keys)
	}

	keys, _ = ms.Keys("unknown")
	if len(keys) != 0 {
		t.Errorf("Expected no keys for unknown namespace, got %v", keys)
	}
}

func TestPersistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "prefstore-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, err := NewPersistence(tmpDir)
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}

	values := map[string]any{"key1": "val1"}

	err = p.SaveNamespace("profile", values)
	if err != nil {
		t.Fatalf("SaveNamespace failed: %v", err)
	}

	// Verify the snapshot file exists and carries a stamped envelope
	content, err := os.ReadFile(filepath.Join(tmpDir, "profile.json"))
	if err != nil {
		t.Fatal("Namespace file was not created")
	}
	var snap schema.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		t.Fatalf("Snapshot file is not valid JSON: %v", err)
	}
	if snap.Meta.SnapshotID == "" {
		t.Error("Expected a snapshot ID")
	}
	if snap.Meta.UpdatedAt.IsZero() {
		t.Error("Expected an update timestamp")
	}

	// Each save gets a fresh snapshot ID
	if err := p.SaveNamespace("profile", values); err != nil {
		t.Fatalf("Second SaveNamespace failed: %v", err)
	}
	content, _ = os.ReadFile(filepath.Join(tmpDir, "profile.json"))
	var snap2 schema.Snapshot
	json.Unmarshal(content, &snap2)
	if snap2.Meta.SnapshotID == snap.Meta.SnapshotID {
		t.Error("Expected a new snapshot ID on re-save")
	}

	allData, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(allData) != 1 {
		t.Errorf("Expected 1 namespace, got %d", len(allData))
	}
	if allData["profile"]["key1"] != "val1" {
		t.Errorf("Loaded data mismatch: %v", allData["profile"])
	}
}

func TestPersistence_Drop(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "prefstore-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, _ := NewPersistence(tmpDir)
	p.SaveNamespace("profile", map[string]any{"k": "v"})

	if err := p.Drop("profile"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "profile.json")); !os.IsNotExist(err) {
		t.Error("Expected snapshot file removed")
	}

	// Dropping an absent namespace is fine
	if err := p.Drop("profile"); err != nil {
		t.Errorf("Drop on missing file failed: %v", err)
	}
}

func TestPersistence_LoadAllSkipsCorrupt(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "prefstore-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, _ := NewPersistence(tmpDir)
	if err := p.SaveNamespace("profile", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("SaveNamespace failed: %v", err)
	}

	// A corrupt snapshot is skipped with a warning, not fatal.
	bad := filepath.Join(tmpDir, "broken.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// So is a file whose stem is no usable namespace name.
	if err := os.WriteFile(filepath.Join(tmpDir, ".json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	allData, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	if len(allData) != 1 {
		t.Errorf("Expected 1 namespace, got %d: %v", len(allData), allData)
	}
	if allData["profile"]["k"] != "v" {
		t.Errorf("Loaded data mismatch: %v", allData["profile"])
	}
	if _, ok := allData["broken"]; ok {
		t.Error("Expected corrupt snapshot omitted from load")
	}
}

func TestMemStore_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "prefstore-persistence-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, _ := NewPersistence(tmpDir)
	ms := NewMemStore(nil, p)

	err = ms.Set("profile", "k1", "v1")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ms.Wait() // Wait for background persistence

	// Create new MemStore and load data
	allData, _ := p.LoadAll()
	ms2 := NewMemStore(allData, p)

	val, err := ms2.Get("profile", "k1")
	if err != nil {
		t.Fatalf("Get on new store failed: %v", err)
	}
	if val != "v1" {
		t.Errorf("Expected v1, got %v", val)
	}
}

func TestMemStore_PersistOrdering(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "prefstore-ordering-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, _ := NewPersistence(tmpDir)
	ms := NewMemStore(nil, p)

	// Rapid writes race their background saves; the newest must win on disk
	// no matter which save goroutine runs last.
	const rounds = 50
	for i := 0; i < rounds; i++ {
		if err := ms.Set("profile", "counter", i); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	ms.Wait()

	allData, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	// JSON numbers come back as float64.
	if got := allData["profile"]["counter"]; got != float64(rounds-1) {
		t.Errorf("Expected %d on disk, got %v", rounds-1, got)
	}

	// A wipe queued behind a write wins over it on disk as well.
	if err := ms.Set("scratch", "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := ms.Wipe("scratch"); err != nil {
		t.Fatalf("Wipe failed: %v", err)
	}
	ms.Wait()
	if _, err := os.Stat(filepath.Join(tmpDir, "scratch.json")); !os.IsNotExist(err) {
		t.Error("Expected no snapshot file after wipe")
	}
}

func TestMemStore_NamespaceScope(t *testing.T) {
	ms := NewMemStore(nil, nil)

	scope := ms.Namespace("profile")
	if err := scope.Set("firstname", "Ravi"); err != nil {
		t.Fatalf("Scope Set failed: %v", err)
	}

	val, err := scope.Get("firstname")
	if err != nil {
		t.Fatalf("Scope Get failed: %v", err)
	}
	if val != "Ravi" {
		t.Errorf("Expected Ravi, got %v", val)
	}

	if err := scope.Remove("firstname"); err != nil {
		t.Fatalf("Scope Remove failed: %v", err)
	}
	if _, err := scope.Get("firstname"); err != prefs.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	// The scope is a plain store handle, usable for typed bindings.
	b, err := prefs.New(scope, "firstname", "Shivam")
	if err != nil {
		t.Fatalf("New binding failed: %v", err)
	}
	got, err := b.Get()
	if err != nil {
		t.Fatalf("Binding Get failed: %v", err)
	}
	if got != "Shivam" {
		t.Errorf("Expected default Shivam, got %q", got)
	}
}

func TestMemStore_Concurrent(t *testing.T) {
	ms := NewMemStore(nil, nil)
	const (
		numGoroutines = 10
		numOps        = 100
	)
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				ms.Set("profile", key, j)
				val, err := ms.Get("profile", key)
				if err != nil || val != j {
					t.Errorf("Concurrent mismatch: expected %d, got %v, err %v", j, val, err)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemStore_Dump(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Set("profile", "k1", "v1")
	ms.Set("profile", "k2", "v2")
	ms.Set("settings", "k3", "v3")

	dump, err := ms.Dump("profile")
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	if len(dump) != 2 || dump["k1"] != "v1" || dump["k2"] != "v2" {
		t.Errorf("Dump mismatch: %v", dump)
	}

	_, err = ms.Dump("non-existent")
	if err != ErrNamespaceNotFound {
		t.Errorf("Expected ErrNamespaceNotFound, got %v", err)
	}

	// Mutating the dump must not touch the store
	dump["k1"] = "mutated"
	if val, _ := ms.Get("profile", "k1"); val != "v1" {
		t.Errorf("Dump leaked internal map: %v", val)
	}
}

func TestMemStore_Wipe(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "prefstore-wipe-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, _ := NewPersistence(tmpDir)
	ms := NewMemStore(nil, p)

	ms.Set("profile", "k1", "v1")
	ms.Wait()

	if err := ms.Wipe("profile"); err != nil {
		t.Fatalf("Wipe failed: %v", err)
	}
	ms.Wait()

	if _, err := ms.Get("profile", "k1"); err != prefs.ErrNotFound {
		t.Errorf("Expected ErrNotFound after wipe, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "profile.json")); !os.IsNotExist(err) {
		t.Error("Expected snapshot file removed after wipe")
	}

	// Wiping an absent namespace is fine
	if err := ms.Wipe("profile"); err != nil {
		t.Errorf("Second Wipe failed: %v", err)
	}
}

func TestMemStore_Move(t *testing.T) {
	ms := NewMemStore(nil, nil)
	ms.Set("staging", "k1", "v1")

	err := ms.Move("staging", "live", "k1")
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	val, err := ms.Get("live", "k1")
	if err != nil || val != "v1" {
		t.Errorf("Move failed to set dst: %v, %v", val, err)
	}

	_, err = ms.Get("staging", "k1")
	if err != prefs.ErrNotFound {
		t.Errorf("Move failed to delete src: %v", err)
	}

	if err := ms.Move("staging", "live", "missing"); err != prefs.ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}
}
