package session

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-json"
)

// TreeState is the persisted collapse state, saved to
// .beads/tree-state.json so it survives restarts.
//
//	{
//	  "version": 1,
//	  "collapsed": ["bd-12", "bd-40"]
//	}
//
// A missing or unreadable file means everything is expanded.
type TreeState struct {
	Version   int      `json:"version"`
	Collapsed []string `json:"collapsed"`
}

// TreeStateVersion is the current schema version.
const TreeStateVersion = 1

const treeStateFileName = "tree-state.json"

// TreeStatePath returns the state file location inside beadsDir.
func TreeStatePath(beadsDir string) string {
	if beadsDir == "" {
		beadsDir = ".beads"
	}
	return filepath.Join(beadsDir, treeStateFileName)
}

// LoadTreeState reads the collapse set from path. A missing file yields an
// empty map and no error.
func LoadTreeState(path string) (map[string]bool, error) {
	out := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("reading tree state: %w", err)
	}
	var st TreeState
	if err := json.Unmarshal(data, &st); err != nil {
		return out, fmt.Errorf("invalid tree state %s: %w", path, err)
	}
	for _, id := range st.Collapsed {
		out[id] = true
	}
	return out, nil
}

// SaveTreeState writes the collapse set to path.
func SaveTreeState(path string, collapsed map[string]bool) error {
	st := TreeState{Version: TreeStateVersion, Collapsed: []string{}}
	for id, c := range collapsed {
		if c {
			st.Collapsed = append(st.Collapsed, id)
		}
	}
	slices.Sort(st.Collapsed)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tree state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing tree state: %w", err)
	}
	return nil
}
