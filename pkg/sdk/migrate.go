package sdk

import "fmt"

// Migrate copies every namespace and key from a source store to a
// destination store. This works for:
// - Embedded -> Remote (the upgrade to a shared daemon)
// - Remote -> Embedded (backup, or going offline)
func Migrate(src, dst Store) error {
	namespaces, err := src.Namespaces()
	if err != nil {
		return fmt.Errorf("failed to list namespaces: %w", err)
	}

	for _, ns := range namespaces {
		values, err := src.Dump(ns)
		if err != nil {
			return fmt.Errorf("failed to dump namespace %s: %w", ns, err)
		}

		for k, v := range values {
			if err := dst.Set(ns, k, v); err != nil {
				return fmt.Errorf("failed to set key %s in destination: %w", k, err)
			}
		}
	}

	return nil
}
