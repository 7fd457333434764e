package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"positionScope/internal/model"
)

// WriteSnapshot stores a snapshot as indented JSON, replacing any existing file.
func WriteSnapshot(path string, snapshot model.Snapshot) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadSnapshot loads and validates a snapshot file.
func ReadSnapshot(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snapshot, nil
}
