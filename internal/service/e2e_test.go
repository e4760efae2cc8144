package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/content"
	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
	"github.com/MimeLyc/chapter-translator/internal/progress"
	"github.com/MimeLyc/chapter-translator/internal/translation"
)

// staticModels detects a fixed language and has a fixed set of installed models.
type staticModels struct {
	detected  string
	installed []string
}

func (m staticModels) AvailableModels(context.Context) ([]string, error) { return m.installed, nil }
func (m staticModels) DownloadModel(context.Context, string) error       { return nil }
func (m staticModels) DeleteModel(context.Context, string) error         { return nil }
func (m staticModels) IdentifyLanguage(context.Context, string) (string, error) {
	return m.detected, nil
}
func (m staticModels) Translate(context.Context, string, string, string) (string, error) {
	panic("local engine must not be used")
}

type onlineCall struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

func newFakeGoogle(t *testing.T) (*httptest.Server, func() []onlineCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []onlineCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call onlineCall
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&call))
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		text := "Translated body"
		if call.Q == "Chapter One" {
			text = "Chapter One"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{{"translatedText": text}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []onlineCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]onlineCall(nil), calls...)
	}
}

type e2eEnv struct {
	db       *persistence.SQLiteStore
	content  *content.FileStore
	settings *config.TranslationSettingsStore
	calls    func() []onlineCall
	chapters *ChapterTranslator
}

func newE2EEnv(t *testing.T) *e2eEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := persistence.NewSQLiteStore(filepath.Join(dir, "chapters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	settings, err := config.NewTranslationSettingsStore(filepath.Join(dir, "settings.json"), "")
	require.NoError(t, err)
	_, err = settings.SetTranslationSettings(config.TranslationSettings{TargetLang: "en"})
	require.NoError(t, err)

	srv, calls := newFakeGoogle(t)
	provider := translation.NewProvider(
		staticModels{detected: "es", installed: []string{"en"}},
		translation.NewOnlineClient(config.OnlineConfig{APIURL: srv.URL, APIKey: "k", Timeout: 5}),
	)

	store := content.NewFileStoreWithFs(afero.NewMemMapFs(), "/novels")
	return &e2eEnv{
		db:       db,
		content:  store,
		settings: settings,
		calls:    calls,
		chapters: NewChapterTranslator(store, db, settings, provider),
	}
}

func TestEndToEnd_OnlineFallbackPersistsRecord(t *testing.T) {
	ctx := context.Background()
	env := newE2EEnv(t)

	require.NoError(t, env.db.UpsertChapter(ctx, persistence.ChapterInfo{
		ChapterID: 7, NovelID: 3, PluginID: "novelfull", Name: "Chapter One",
	}))
	p := env.content.ChapterPath("novelfull", 3, 7)
	require.NoError(t, env.content.WriteFile(ctx, p, "Hello\n  world"))

	rec := &progress.Recorder{}
	require.NoError(t, env.chapters.TranslateChapter(ctx, chapterSeven, rec))

	stored, err := env.db.GetTranslation(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Translated body", stored.Content)
	assert.Equal(t, "mlkit", stored.Model)
	assert.Equal(t, "ML Kit translation", stored.Instruction)
	assert.Equal(t, "Chapter One", stored.TranslatedTitle)

	info, err := env.db.GetChapterInfo(ctx, 7)
	require.NoError(t, err)
	assert.True(t, info.HasTranslation)
	assert.Equal(t, "Chapter One", info.TranslatedName)

	calls := env.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, onlineCall{Q: "Hello\n  world", Source: "es", Target: "en", Format: "text"}, calls[0])
	assert.Equal(t, onlineCall{Q: "Chapter One", Source: "es", Target: "en", Format: "text"}, calls[1])
	assert.Equal(t, progress.Completed, rec.Last().Progress)

	// a second run is a no-op
	rec = &progress.Recorder{}
	require.NoError(t, env.chapters.TranslateChapter(ctx, chapterSeven, rec))
	assert.Equal(t, []float64{progress.Started, progress.Completed}, rec.Values())
	assert.Len(t, env.calls(), 2)
}

func TestEndToEnd_QueueWaitsForContent(t *testing.T) {
	ctx := context.Background()
	env := newE2EEnv(t)
	require.NoError(t, env.db.UpsertChapter(ctx, persistence.ChapterInfo{
		ChapterID: 7, NovelID: 3, PluginID: "novelfull", Name: "Chapter One",
	}))

	q := jobs.NewQueue(1, env.db)
	q.Start(NewJobExecutor(env.chapters))
	defer q.Stop()

	job, created := q.Enqueue(jobs.EnqueueRequest{
		Source: "test",
		Payload: jobs.ChapterPayload{
			ChapterID: 7, NovelID: 3, PluginID: "novelfull", ChapterName: "Chapter One",
		},
	})
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == jobs.StatusWaiting
	}, 2*time.Second, 10*time.Millisecond)

	p := env.content.ChapterPath("novelfull", 3, 7)
	require.NoError(t, env.content.WriteFile(ctx, p, "Hola mundo"))

	scheduler := NewRetryScheduler("*/5 * * * *", nil, q)
	assert.Equal(t, 1, scheduler.Sweep())

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == jobs.StatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := q.Get(job.ID)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, progress.Completed, got.Progress.Progress)

	stored, err := env.db.GetTranslation(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Translated body", stored.Content)
}
