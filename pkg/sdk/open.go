package sdk

import (
	"context"
	"os"
	"time"

	"github.com/shivammaggu/prefstore/internal/discovery"
	"github.com/shivammaggu/prefstore/pkg/engine"
)

// Open initializes a store based on the environment and returns the Store
// contract, so the app doesn't care if it's local or remote. The selection
// chain:
//
//  1. PREFSTORE_ADDR names a daemon: connect to it.
//  2. A daemon announces itself on the LAN: connect to the first one
//     found, unless PREFSTORE_MDNS=false.
//  3. Otherwise run the embedded engine over dataDir.
func Open(dataDir string) (Store, error) {
	// 1. Check if a remote store is defined in environment variables
	if remoteAddr := os.Getenv("PREFSTORE_ADDR"); remoteAddr != "" {
		client, err := Connect(remoteAddr)
		if err == nil {
			return client, nil
		}
		// Connection failed; fall through to the local paths.
	}

	// 2. Look for an announced daemon on the local network
	if os.Getenv("PREFSTORE_MDNS") != "false" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		addr, err := discovery.Lookup(ctx)
		cancel()
		if err == nil {
			if client, err := Connect(addr); err == nil {
				return client, nil
			}
		}
	}

	// 3. Fallback to embedded mode.
	// This uses the same engine the daemon uses, but inside the app process.
	p, err := engine.NewPersistence(dataDir)
	if err != nil {
		return nil, err
	}

	allData, err := p.LoadAll()
	if err != nil {
		return nil, err
	}

	// Create a MemStore and inject the persistence
	return engine.NewMemStore(allData, p), nil
}
