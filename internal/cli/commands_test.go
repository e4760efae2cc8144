package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
	"github.com/MimeLyc/chapter-translator/internal/progress"
)

// runCommand executes the root command against an isolated data dir.
func runCommand(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", "", "--data-dir", dataDir, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSettingsCommands(t *testing.T) {
	dataDir := t.TempDir()

	out, err := runCommand(t, dataDir, "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "targetLang: es")

	out, err = runCommand(t, dataDir, "settings", "set", "fr")
	require.NoError(t, err)
	assert.Contains(t, out, "targetLang: fr")

	out, err = runCommand(t, dataDir, "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "targetLang: fr")

	_, err = runCommand(t, dataDir, "settings", "set", "not a language")
	require.Error(t, err)
}

func TestLogFileFlag(t *testing.T) {
	dataDir := t.TempDir()
	logFile := filepath.Join(dataDir, "logs", "chaptertrans.log")

	_, err := runCommand(t, dataDir, "--log-file", logFile, "--log-level", "debug", "settings", "get")
	require.NoError(t, err)
	assert.FileExists(t, logFile)
}

func TestLanguagesCommand(t *testing.T) {
	out, err := runCommand(t, t.TempDir(), "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "Japanese")
	assert.Contains(t, out, "Deutsch")
}

func TestModelsCommands(t *testing.T) {
	repo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fr.model", r.URL.Path)
		_, _ = w.Write([]byte("model-bytes"))
	}))
	defer repo.Close()
	t.Setenv("MODEL_REPOSITORY_URL", repo.URL)

	dataDir := t.TempDir()

	out, err := runCommand(t, dataDir, "models", "download", "fr")
	require.NoError(t, err)
	assert.Contains(t, out, "Model fr installed")
	assert.FileExists(t, filepath.Join(dataDir, "models", "fr.model"))

	out, err = runCommand(t, dataDir, "models", "download", "fr")
	require.NoError(t, err)
	assert.Contains(t, out, "already installed")

	out, err = runCommand(t, dataDir, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "installed")

	_, err = runCommand(t, dataDir, "models", "delete", "fr")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dataDir, "models", "fr.model"))

	_, err = runCommand(t, dataDir, "models", "download", "xx")
	require.Error(t, err)
}

func TestTranslateCommand_OnlineRoute(t *testing.T) {
	online := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Q      string `json:"q"`
			Target string `json:"target"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "es", req.Target)

		text := "Texto traducido"
		if req.Q == "Chapter One" {
			text = "Capítulo uno"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{{"translatedText": text}},
			},
		})
	}))
	defer online.Close()
	t.Setenv("ONLINE_API_URL", online.URL)

	dataDir := t.TempDir()
	chapterFile := filepath.Join(dataDir, "novels", "p1", "7", "42", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(chapterFile), 0o755))
	body := "The old man walked slowly along the quiet road toward the village where he was born."
	require.NoError(t, os.WriteFile(chapterFile, []byte(body), 0o644))

	out, err := runCommand(t, dataDir, "translate", "42", "--plugin", "p1", "--novel", "7", "--name", "Chapter One")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "100%")

	store, err := persistence.NewSQLiteStore(filepath.Join(dataDir, "chapters.db"))
	require.NoError(t, err)
	defer store.Close()

	record, err := store.GetTranslation(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Texto traducido", record.Content)

	info, err := store.GetChapterInfo(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.HasTranslation)
	assert.Equal(t, "Capítulo uno", info.TranslatedName)
}

func TestTranslateCommand_UnregisteredChapter(t *testing.T) {
	out, err := runCommand(t, t.TempDir(), "translate", "5", "--plugin", "p1")
	require.Error(t, err)
	assert.Contains(t, out, "Error:")
}

func TestTranslateCommand_RequiresPlugin(t *testing.T) {
	_, err := runCommand(t, t.TempDir(), "translate", "5")
	require.Error(t, err)
}

func TestJobsCommand(t *testing.T) {
	dataDir := t.TempDir()
	store, err := persistence.NewSQLiteStore(filepath.Join(dataDir, "chapters.db"))
	require.NoError(t, err)

	now := time.Now()
	for _, job := range []*jobs.TranslationJob{
		{ID: "job-1", DedupeKey: "p1|7|1", Payload: jobs.ChapterPayload{ChapterID: 1, PluginID: "p1", NovelID: 7, ChapterName: "Prologue"},
			Status: jobs.StatusSuccess, Progress: progress.TaskProgress{Progress: 1, Text: "completed"}, Attempts: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "job-2", DedupeKey: "p1|7|2", Payload: jobs.ChapterPayload{ChapterID: 2, PluginID: "p1", NovelID: 7},
			Status: jobs.StatusWaiting, Progress: progress.TaskProgress{Progress: 0.1, Text: "waiting for chapter content"}, Attempts: 1,
			CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)},
	} {
		require.NoError(t, store.UpsertJob(context.Background(), job))
	}
	require.NoError(t, store.Close())

	out, err := runCommand(t, dataDir, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "1 Prologue")
	assert.Contains(t, out, "job-2")

	out, err = runCommand(t, dataDir, "jobs", "--status", "waiting")
	require.NoError(t, err)
	assert.NotContains(t, out, "job-1")
	assert.Contains(t, out, "waiting for chapter content")
}

func TestLibraryCommand(t *testing.T) {
	dataDir := t.TempDir()
	for _, id := range []string{"1", "2"} {
		p := filepath.Join(dataDir, "novels", "p1", "7", id, "index.html")
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("body"), 0o644))
	}

	store, err := persistence.NewSQLiteStore(filepath.Join(dataDir, "chapters.db"))
	require.NoError(t, err)
	require.NoError(t, store.UpsertChapter(context.Background(), persistence.ChapterInfo{ChapterID: 2, NovelID: 7, PluginID: "p1", Name: "Second"}))
	require.NoError(t, store.Close())

	out, err := runCommand(t, dataDir, "library")
	require.NoError(t, err)
	assert.Contains(t, out, "unregistered")
	assert.Contains(t, out, "Second")

	out, err = runCommand(t, dataDir, "library", "--pending")
	require.NoError(t, err)
	assert.NotContains(t, out, "unregistered")
	assert.Contains(t, out, "pending")
}
