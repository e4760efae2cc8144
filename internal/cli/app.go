package cli

import (
	"fmt"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/content"
	"github.com/MimeLyc/chapter-translator/internal/models"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
	"github.com/MimeLyc/chapter-translator/internal/service"
	"github.com/MimeLyc/chapter-translator/internal/translation"
)

// app holds the components shared by the commands.
type app struct {
	cfg        *config.Config
	store      *persistence.SQLiteStore
	settings   *config.TranslationSettingsStore
	content    *content.FileStore
	provider   *translation.Provider
	translator *service.ChapterTranslator
}

func newApp(cfg *config.Config) (*app, error) {
	settings, err := config.NewTranslationSettingsStore(cfg.Storage.SettingsFile, cfg.Translate.DefaultTargetLanguage.String())
	if err != nil {
		return nil, fmt.Errorf("open translation settings: %w", err)
	}

	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	files := content.NewFileStore(cfg.Storage.NovelStorage)
	provider := translation.NewProvider(
		models.NewLocalManager(cfg.Models),
		translation.NewOnlineClient(cfg.Online),
	)

	return &app{
		cfg:        cfg,
		store:      store,
		settings:   settings,
		content:    files,
		provider:   provider,
		translator: service.NewChapterTranslator(files, store, settings, provider),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
