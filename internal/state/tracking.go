// Package state persists per-repository tracking data between invocations:
// which bookmark each stack position last mapped to, and a short-lived
// cache of resolved pull requests so a run can skip a platform lookup when
// nothing has changed.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const trackingSchemaVersion = 1

// TrackingEntry records the last bookmark a stack position submitted to,
// so a later invocation can detect it was renamed or removed out-of-band.
type TrackingEntry struct {
	ChangeID     string `toml:"change_id"`
	BookmarkName string `toml:"bookmark_name"`
	PrNumber     int    `toml:"pr_number,omitempty"`
}

// TrackingState is the schema of tracking.toml.
type TrackingState struct {
	SchemaVersion int             `toml:"schema_version"`
	Entries       []TrackingEntry `toml:"entries"`
}

// stateDir returns .jj/repo/ryu under the given repo root.
func stateDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".jj", "repo", "ryu")
}

func trackingPath(repoRoot string) string {
	return filepath.Join(stateDir(repoRoot), "tracking.toml")
}

// LoadTrackingState reads tracking.toml, returning a fresh empty state if
// the file doesn't exist yet.
func LoadTrackingState(repoRoot string) (*TrackingState, error) {
	data, err := os.ReadFile(trackingPath(repoRoot))
	if os.IsNotExist(err) {
		return &TrackingState{SchemaVersion: trackingSchemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tracking state: %w", err)
	}
	var ts TrackingState
	if err := toml.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("parsing tracking state: %w", err)
	}
	return &ts, nil
}

// Save writes the tracking state back to tracking.toml, creating the
// enclosing directory if needed.
func (ts *TrackingState) Save(repoRoot string) error {
	ts.SchemaVersion = trackingSchemaVersion
	if err := os.MkdirAll(stateDir(repoRoot), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := toml.Marshal(ts)
	if err != nil {
		return fmt.Errorf("marshaling tracking state: %w", err)
	}
	return os.WriteFile(trackingPath(repoRoot), data, 0o644)
}

// Upsert records or replaces the tracking entry for changeID.
func (ts *TrackingState) Upsert(entry TrackingEntry) {
	for i, e := range ts.Entries {
		if e.ChangeID == entry.ChangeID {
			ts.Entries[i] = entry
			return
		}
	}
	ts.Entries = append(ts.Entries, entry)
}

// Find returns the tracking entry for changeID, if any.
func (ts *TrackingState) Find(changeID string) (TrackingEntry, bool) {
	for _, e := range ts.Entries {
		if e.ChangeID == changeID {
			return e, true
		}
	}
	return TrackingEntry{}, false
}
