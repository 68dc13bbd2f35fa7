// SPDX-License-Identifier: MPL-2.0

package framework

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// StoreFile is the name of the persisted module table in the storage dir.
const StoreFile = "modules.toml"

type (
	// store is the persisted form of the installed module set.
	store struct {
		NextID  ModuleID      `toml:"next_id"`
		Modules []storedEntry `toml:"module"`
	}

	storedEntry struct {
		ID         ModuleID   `toml:"id"`
		Location   Location   `toml:"location"`
		Source     SourceKind `toml:"source"`
		Generation int64      `toml:"generation"`
	}
)

func loadStore(dir string) (*store, error) {
	data, err := os.ReadFile(filepath.Join(dir, StoreFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &store{NextID: 1}, nil
		}
		return nil, fmt.Errorf("failed to read module store: %w", err)
	}

	var s store
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	}
	if s.NextID < 1 {
		s.NextID = 1
	}
	for _, e := range s.Modules {
		if err := e.Location.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrStoreCorrupt, e.ID, err)
		}
		if err := e.Source.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrStoreCorrupt, e.ID, err)
		}
		if e.ID >= s.NextID {
			s.NextID = e.ID + 1
		}
	}
	slices.SortFunc(s.Modules, func(a, b storedEntry) int { return int(a.ID - b.ID) })
	return &s, nil
}

func (s *store) save(dir string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode module store: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	// Write atomically using temp file + rename
	path := filepath.Join(dir, StoreFile)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write module store: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename module store: %w", err)
	}
	return nil
}

func removeStore(dir string) error {
	err := os.Remove(filepath.Join(dir, StoreFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clean module store: %w", err)
	}
	return nil
}
