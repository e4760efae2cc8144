package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/app/data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("/app/data", "chapters.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("/app/data", "novels"), cfg.Storage.NovelStorage)
	assert.Equal(t, filepath.Join("/app/data", "models"), cfg.Models.Dir)
	assert.Equal(t, "https://translation.googleapis.com/language/translate/v2", cfg.Online.APIURL)
	assert.Equal(t, language.Spanish, cfg.Translate.DefaultTargetLanguage)
	assert.Equal(t, "*/5 * * * *", cfg.Translate.RetryCron)
	assert.Equal(t, 1, cfg.Translate.Workers)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestNewFromEnv_DataDirFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/chapter-data")
	t.Setenv("NOVEL_STORAGE", "/srv/novels")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/chapter-data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("/tmp/chapter-data", "chapters.db"), cfg.DBPath())
	assert.Equal(t, "/srv/novels", cfg.Storage.NovelStorage)
	assert.Equal(t, filepath.Join("/tmp/chapter-data", "settings.json"), cfg.Storage.SettingsFile)
}

func TestNewFromEnv_InvalidRetryCron(t *testing.T) {
	t.Setenv("RETRY_CRON", "every now and then")

	_, err := NewFromEnv()
	require.Error(t, err)
}

func TestLoad_ConfigFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaptertrans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\njob_workers: 3\nhttp_addr: \":9000\"\n"), 0o644))
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.Storage.DataDir)
	assert.Equal(t, 3, cfg.Translate.Workers)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
}

func TestOptions_Override(t *testing.T) {
	cfg, err := NewFromEnv(WithDataDir("/opt/data"), WithHTTPAddr("127.0.0.1:1"))
	require.NoError(t, err)

	assert.Equal(t, "/opt/data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("/opt/data", "novels"), cfg.Storage.NovelStorage)
	assert.Equal(t, filepath.Join("/opt/data", "models"), cfg.Models.Dir)
	assert.Equal(t, "127.0.0.1:1", cfg.HTTP.Addr)
}

func TestSupportedLanguages(t *testing.T) {
	langs := SupportedLanguages()
	require.Len(t, langs, 7)
	assert.Equal(t, "en", langs[0].Code)
	assert.Equal(t, "English", langs[0].Name)
	assert.True(t, IsSupportedLanguage("ja"))
	assert.False(t, IsSupportedLanguage("xx"))
}
