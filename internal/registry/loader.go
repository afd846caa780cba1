package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sdbridge/internal/common/fsutil"
	"sdbridge/pkg/types"
)

// Extensions recognised as checkpoint weights.
var checkpointExts = []string{".safetensors", ".ckpt"}

// LoadDir scans a directory for checkpoint files and returns them sorted by name.
// Name is the full filename (usable as a switch target); Path is absolute.
// Subdirectories are not descended into.
func LoadDir(dir string) ([]types.Checkpoint, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	cps := []types.Checkpoint{}
	for _, e := range entries {
		if e.IsDir() || !IsCheckpoint(e.Name()) {
			continue
		}
		cp := types.Checkpoint{Name: e.Name(), Path: filepath.Join(abs, e.Name())}
		if fi, err := e.Info(); err == nil {
			cp.SizeBytes = fi.Size()
		}
		cps = append(cps, cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].Name < cps[j].Name })
	return cps, nil
}

// IsCheckpoint reports whether name carries a checkpoint extension (case-insensitive).
func IsCheckpoint(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range checkpointExts {
		if ext == e {
			return true
		}
	}
	return false
}
