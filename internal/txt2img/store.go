package txt2img

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sdbridge/internal/common/fsutil"
)

// ArtifactStore persists one generated image and returns a reference to it:
// an absolute path for local storage or a URL for object storage.
type ArtifactStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// DefaultOutputDir is where LocalStore writes when no directory is given.
const DefaultOutputDir = "outputs"

// LocalStore writes artifacts into a directory on disk.
type LocalStore struct {
	Dir string
}

// NewLocalStore returns a store rooted at dir. Empty means outputs/; a
// leading "~" is expanded on first save.
func NewLocalStore(dir string) *LocalStore {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultOutputDir
	}
	return &LocalStore{Dir: dir}
}

// Save writes data under name and returns the absolute path. An existing
// file is never overwritten; a -N suffix is added before the extension.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := fsutil.EnsureDir(s.Dir)
	if err != nil {
		return "", fmt.Errorf("txt2img: output dir: %w", err)
	}
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 0; ; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		p := filepath.Join(dir, candidate)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return p, nil
	}
}
