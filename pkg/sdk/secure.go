package sdk

import (
	"encoding/json"
	"errors"

	"github.com/shivammaggu/prefstore/internal/vault"
	"github.com/shivammaggu/prefstore/pkg/prefs"
)

// ErrNotEncrypted is returned when a secure handle reads back a value that
// is not an encrypted payload.
var ErrNotEncrypted = errors.New("sdk: stored value is not an encrypted payload")

// Secure wraps a store handle with client-side encryption: values are
// JSON-encoded and sealed with AES-GCM before the underlying store sees
// them, then opened and re-materialized on the way back. The master key
// never leaves the process; the daemon only ever holds hex ciphertext.
//
// The returned handle is a plain store, so typed bindings work over it
// unchanged.
func Secure(store prefs.Store, masterKey []byte) prefs.Store {
	return &secureScope{store: store, key: masterKey}
}

type secureScope struct {
	store prefs.Store
	key   []byte
}

func (s *secureScope) Set(key string, val any) error {
	plain, err := json.Marshal(val)
	if err != nil {
		return err
	}
	ciphertext, err := vault.Encrypt(plain, s.key)
	if err != nil {
		return err
	}
	return s.store.Set(key, ciphertext)
}

func (s *secureScope) Get(key string) (any, error) {
	raw, err := s.store.Get(key)
	if err != nil {
		return nil, err
	}

	cipherHex, ok := raw.(string)
	if !ok {
		return nil, ErrNotEncrypted
	}

	plain, err := vault.Decrypt(cipherHex, s.key)
	if err != nil {
		return nil, err
	}

	var val any
	if err := json.Unmarshal(plain, &val); err != nil {
		return nil, err
	}
	return val, nil
}

func (s *secureScope) Remove(key string) error {
	return s.store.Remove(key)
}
