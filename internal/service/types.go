package service

import (
	"context"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
	"github.com/MimeLyc/chapter-translator/internal/translation"
)

// Recorded on every translation the orchestrator stores.
const (
	RecordModel       = "mlkit"
	RecordInstruction = "ML Kit translation"
)

// ChapterInput identifies the chapter to translate.
type ChapterInput struct {
	ChapterID   int64  `json:"chapter_id"`
	NovelID     int64  `json:"novel_id"`
	PluginID    string `json:"plugin_id"`
	ChapterName string `json:"chapter_name"`
	NovelName   string `json:"novel_name"`
}

type ContentStore interface {
	ChapterPath(pluginID string, novelID, chapterID int64) string
	Exists(ctx context.Context, path string) (bool, error)
	ReadFile(ctx context.Context, path string) (string, error)
}

type ChapterRepository interface {
	GetChapterInfo(ctx context.Context, chapterID int64) (*persistence.ChapterInfo, error)
	GetTranslation(ctx context.Context, chapterID int64) (*persistence.TranslationRecord, error)
	SaveTranslation(ctx context.Context, chapterID int64, content, model, instruction, title string) error
}

type SettingsReader interface {
	GetTranslationSettings() (config.TranslationSettings, error)
}

type Translator interface {
	SmartTranslate(ctx context.Context, text, targetLang string) (translation.Result, error)
}
