// Package library lists the chapters present in the novel storage tree.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/MimeLyc/chapter-translator/internal/content"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
)

// ChapterLookup resolves the metadata registered for a chapter.
type ChapterLookup interface {
	GetChapterInfo(ctx context.Context, chapterID int64) (*persistence.ChapterInfo, error)
}

type scannerOptions struct {
	fs       afero.Fs
	cacheTTL time.Duration
}

type Option func(*scannerOptions)

func WithFs(fs afero.Fs) Option {
	return func(o *scannerOptions) {
		o.fs = fs
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *scannerOptions) {
		o.cacheTTL = ttl
	}
}

type scanCache struct {
	version uint64
	scanned time.Time
	library *Library
}

// Scanner walks {root}/{pluginId}/{novelId}/{chapterId}/index.html.
type Scanner struct {
	fs     afero.Fs
	root   string
	lookup ChapterLookup

	mu       sync.RWMutex
	cacheTTL time.Duration
	cache    *scanCache
	version  uint64
}

func NewScanner(root string, lookup ChapterLookup, opts ...Option) *Scanner {
	options := scannerOptions{
		fs:       afero.NewOsFs(),
		cacheTTL: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Scanner{
		fs:       options.fs,
		root:     root,
		lookup:   lookup,
		cacheTTL: options.cacheTTL,
	}
}

// Invalidate drops the cached result so the next Scan walks the tree again.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.version++
	s.mu.Unlock()
}

func (s *Scanner) Scan(ctx context.Context) (*Library, error) {
	s.mu.RLock()
	version := s.version
	if s.cache != nil && s.cache.version == version && (s.cacheTTL <= 0 || time.Since(s.cache.scanned) < s.cacheTTL) {
		cached := cloneLibrary(s.cache.library)
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	found, err := s.findChapters(ctx)
	if err != nil {
		return nil, err
	}

	ret := &Library{
		Novels:   make([]Novel, 0),
		Chapters: make([]Chapter, 0, len(found)),
	}
	novelIdx := make(map[string]int)

	for _, chapter := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.lookup != nil {
			info, err := s.lookup.GetChapterInfo(ctx, chapter.ChapterID)
			if err != nil {
				return nil, fmt.Errorf("lookup chapter %d: %w", chapter.ChapterID, err)
			}
			if info != nil {
				chapter.Registered = true
				chapter.Name = info.Name
				chapter.HasTranslation = info.HasTranslation
				chapter.TranslatedName = info.TranslatedName
				chapter.Translatable = !(info.HasTranslation && info.TranslatedName != "")
			}
		}

		key := novelKey(chapter.PluginID, chapter.NovelID)
		idx, ok := novelIdx[key]
		if !ok {
			ret.Novels = append(ret.Novels, Novel{
				ID:       key,
				PluginID: chapter.PluginID,
				NovelID:  chapter.NovelID,
			})
			idx = len(ret.Novels) - 1
			novelIdx[key] = idx
		}
		ret.Novels[idx].ChapterCount++
		if chapter.HasTranslation {
			ret.Novels[idx].TranslatedCount++
		}
		ret.Chapters = append(ret.Chapters, chapter)
	}

	s.mu.Lock()
	if s.version == version {
		s.cache = &scanCache{
			version: version,
			scanned: time.Now(),
			library: cloneLibrary(ret),
		}
	}
	s.mu.Unlock()

	return ret, nil
}

// findChapters returns the chapters on disk ordered by plugin, novel and chapter id.
// Directories that do not follow the layout are ignored.
func (s *Scanner) findChapters(ctx context.Context) ([]Chapter, error) {
	if _, err := s.fs.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	ret := make([]Chapter, 0)
	err := afero.Walk(s.fs, s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || info.Name() != content.IndexFile {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 4 {
			return nil
		}
		novelID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil
		}
		chapterID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil
		}

		ret = append(ret, Chapter{
			PluginID:     parts[0],
			NovelID:      novelID,
			ChapterID:    chapterID,
			ContentPath:  p,
			DownloadedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(ret, func(i, j int) bool {
		a, b := ret[i], ret[j]
		if a.PluginID != b.PluginID {
			return a.PluginID < b.PluginID
		}
		if a.NovelID != b.NovelID {
			return a.NovelID < b.NovelID
		}
		return a.ChapterID < b.ChapterID
	})
	return ret, nil
}

func novelKey(pluginID string, novelID int64) string {
	return pluginID + "|" + strconv.FormatInt(novelID, 10)
}

func cloneLibrary(src *Library) *Library {
	if src == nil {
		return nil
	}

	dst := &Library{
		Novels:   make([]Novel, len(src.Novels)),
		Chapters: make([]Chapter, len(src.Chapters)),
	}
	copy(dst.Novels, src.Novels)
	copy(dst.Chapters, src.Chapters)
	return dst
}
