package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/chapter-translator/internal/jobs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename ("001_init.sql" is 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// GetChapterInfo returns nil when the chapter is unknown.
func (s *SQLiteStore) GetChapterInfo(ctx context.Context, chapterID int64) (*ChapterInfo, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, novel_id, plugin_id, name, translated_name, has_translation, updated_at
		 FROM chapters
		 WHERE id = ?`,
		chapterID,
	)

	var info ChapterInfo
	var hasTranslation int
	if err := row.Scan(
		&info.ChapterID,
		&info.NovelID,
		&info.PluginID,
		&info.Name,
		&info.TranslatedName,
		&hasTranslation,
		&info.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	info.HasTranslation = hasTranslation != 0
	return &info, nil
}

// UpsertChapter registers or renames a chapter. The translation flag and the
// translated name are owned by SaveTranslation and left untouched on update.
func (s *SQLiteStore) UpsertChapter(ctx context.Context, info ChapterInfo) error {
	updatedAt := info.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chapters (
			id, novel_id, plugin_id, name, translated_name, has_translation, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			novel_id=excluded.novel_id,
			plugin_id=excluded.plugin_id,
			name=excluded.name,
			updated_at=excluded.updated_at`,
		info.ChapterID,
		info.NovelID,
		info.PluginID,
		info.Name,
		info.TranslatedName,
		boolToInt(info.HasTranslation),
		updatedAt,
	)
	return err
}

// GetTranslation returns nil when no record exists for the chapter.
func (s *SQLiteStore) GetTranslation(ctx context.Context, chapterID int64) (*TranslationRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT chapter_id, content, model, instruction, translated_title, created_at
		 FROM translations
		 WHERE chapter_id = ?`,
		chapterID,
	)

	var rec TranslationRecord
	if err := row.Scan(
		&rec.ChapterID,
		&rec.Content,
		&rec.Model,
		&rec.Instruction,
		&rec.TranslatedTitle,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// SaveTranslation stores the record and marks the chapter translated in one transaction.
func (s *SQLiteStore) SaveTranslation(ctx context.Context, chapterID int64, content, model, instruction, title string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO translations (chapter_id, content, model, instruction, translated_title, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chapter_id) DO UPDATE SET
			content=excluded.content,
			model=excluded.model,
			instruction=excluded.instruction,
			translated_title=excluded.translated_title`,
		chapterID,
		content,
		model,
		instruction,
		title,
		now,
	); err != nil {
		return fmt.Errorf("insert translation: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		`UPDATE chapters
		 SET has_translation = 1,
			translated_name = CASE WHEN ? <> '' THEN ? ELSE translated_name END,
			updated_at = ?
		 WHERE id = ?`,
		title,
		title,
		now,
		chapterID,
	)
	if err != nil {
		return fmt.Errorf("flag chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chapter %d not found", chapterID)
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, dedupe_key, plugin_id, novel_id, chapter_id, chapter_name, novel_name,
			status, error, is_running, progress, progress_text, attempts, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		var item jobs.TranslationJob
		var status string
		var isRunning int
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&item.Payload.PluginID,
			&item.Payload.NovelID,
			&item.Payload.ChapterID,
			&item.Payload.ChapterName,
			&item.Payload.NovelName,
			&status,
			&item.Error,
			&isRunning,
			&item.Progress.Progress,
			&item.Progress.Text,
			&item.Attempts,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		item.Progress.IsRunning = isRunning != 0
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, source, dedupe_key, plugin_id, novel_id, chapter_id, chapter_name, novel_name,
			status, error, is_running, progress, progress_text, attempts, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			dedupe_key=excluded.dedupe_key,
			plugin_id=excluded.plugin_id,
			novel_id=excluded.novel_id,
			chapter_id=excluded.chapter_id,
			chapter_name=excluded.chapter_name,
			novel_name=excluded.novel_name,
			status=excluded.status,
			error=excluded.error,
			is_running=excluded.is_running,
			progress=excluded.progress,
			progress_text=excluded.progress_text,
			attempts=excluded.attempts,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.DedupeKey,
		job.Payload.PluginID,
		job.Payload.NovelID,
		job.Payload.ChapterID,
		job.Payload.ChapterName,
		job.Payload.NovelName,
		string(job.Status),
		job.Error,
		boolToInt(job.Progress.IsRunning),
		job.Progress.Progress,
		job.Progress.Text,
		job.Attempts,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
