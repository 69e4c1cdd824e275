package sdk_test

import (
	"os"
	"testing"

	"github.com/shivammaggu/prefstore/pkg/engine"
	"github.com/shivammaggu/prefstore/pkg/sdk"
)

func TestOpen_Embedded(t *testing.T) {
	// No daemon address and no LAN discovery: Open must fall back to the
	// embedded engine.
	os.Unsetenv("PREFSTORE_ADDR")
	os.Setenv("PREFSTORE_MDNS", "false")
	defer os.Unsetenv("PREFSTORE_MDNS")

	dir := t.TempDir()

	store, err := sdk.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ms, ok := store.(*engine.MemStore)
	if !ok {
		t.Fatalf("Expected embedded engine, got %T", store)
	}

	if err := store.Set("profile", "firstname", "Ravi"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	ms.Wait()

	// A second Open over the same directory sees the persisted data.
	store2, err := sdk.Open(dir)
	if err != nil {
		t.Fatalf("Second Open failed: %v", err)
	}
	val, err := store2.Get("profile", "firstname")
	if err != nil || val != "Ravi" {
		t.Errorf("Expected persisted Ravi, got %v, %v", val, err)
	}
}
