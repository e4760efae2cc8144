// Package content reads downloaded chapter content from the novel storage tree.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"

	"github.com/spf13/afero"
)

// IndexFile is the file holding a chapter's downloaded body.
const IndexFile = "index.html"

// FileStore resolves chapter content below a base directory.
type FileStore struct {
	fs   afero.Fs
	base string
}

// NewFileStore serves content from the local filesystem.
func NewFileStore(base string) *FileStore {
	return NewFileStoreWithFs(afero.NewOsFs(), base)
}

// NewFileStoreWithFs serves content from an arbitrary afero filesystem.
func NewFileStoreWithFs(fsys afero.Fs, base string) *FileStore {
	return &FileStore{fs: fsys, base: base}
}

// ChapterPath returns {base}/{pluginId}/{novelId}/{chapterId}/index.html.
func (s *FileStore) ChapterPath(pluginID string, novelID, chapterID int64) string {
	return path.Join(
		s.base,
		pluginID,
		strconv.FormatInt(novelID, 10),
		strconv.FormatInt(chapterID, 10),
		IndexFile,
	)
}

func (s *FileStore) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	return !info.IsDir(), nil
}

func (s *FileStore) ReadFile(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// WriteFile stores chapter content, creating parent directories.
func (s *FileStore) WriteFile(ctx context.Context, p string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", path.Dir(p), err)
	}
	return afero.WriteFile(s.fs, p, []byte(body), 0o644)
}
