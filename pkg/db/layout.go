package db

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const manifestPrefix = "MANIFEST-"

// StoreExists reports whether path holds an initialised store. Both supported
// engines keep at least one MANIFEST-NNNNNN file next to their tables.
func StoreExists(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read store dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), manifestPrefix) {
			return true, nil
		}
	}
	return false, nil
}

// CheckLayout enforces the CreateIfMissing / ErrorIfExists matrix for path
// before an engine touches the directory.
func CheckLayout(path string, cfg Config) error {
	exists, err := StoreExists(path)
	if err != nil {
		return err
	}
	if exists && cfg.ErrorIfExists {
		return fmt.Errorf("%s: %w", path, ErrStoreExists)
	}
	if !exists && !cfg.CreateIfMissing {
		return fmt.Errorf("%s: %w", path, ErrStoreNotFound)
	}
	return nil
}
