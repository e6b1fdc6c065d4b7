package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rkapur/omniwork/internal/workspace"
)

// SnapshotVersion tags the on-disk layout so future releases can migrate
// older state files instead of discarding them.
const SnapshotVersion = 1

const partialSuffix = ".part"

// Snapshot is the single serialization boundary for everything OmniWork
// persists between sessions. Provider tokens are deliberately absent; they
// live only in volatile session state.
type Snapshot struct {
	Version   int                `json:"version"`
	Theme     string             `json:"theme"`
	Notes     []workspace.Note   `json:"notes"`
	Todos     []workspace.Todo   `json:"todos"`
	Folders   []workspace.Folder `json:"folders"`
	ClientIDs map[string]string  `json:"clientIds"`
}

// Default returns the snapshot used on first run or when the state file is
// unreadable.
func Default() Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		Theme:     "light",
		Folders:   workspace.DefaultFolders(),
		ClientIDs: map[string]string{},
	}
}

// Load reads the snapshot at path. A missing or corrupt file falls back to
// the default snapshot; persistence failures must never block startup.
func Load(path string) Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Default()
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Default()
	}
	if snapshot.Version == 0 {
		snapshot.Version = SnapshotVersion
	}
	if len(snapshot.Folders) == 0 {
		snapshot.Folders = workspace.DefaultFolders()
	}
	if snapshot.ClientIDs == nil {
		snapshot.ClientIDs = map[string]string{}
	}
	if snapshot.Theme == "" {
		snapshot.Theme = "light"
	}
	return snapshot
}

// Save writes the snapshot atomically: the payload lands in a sibling temp
// file first and is renamed over the target, so an interrupted write never
// leaves a half-serialized state file behind.
func Save(path string, snapshot Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	snapshot.Version = SnapshotVersion
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	partial := path + partialSuffix
	if err := os.WriteFile(partial, data, 0o644); err != nil {
		return err
	}
	return os.Rename(partial, path)
}
