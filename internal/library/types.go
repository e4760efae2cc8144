package library

import "time"

// Novel summarises the downloaded chapters of one novel.
type Novel struct {
	ID              string `json:"id"`
	PluginID        string `json:"plugin_id"`
	NovelID         int64  `json:"novel_id"`
	ChapterCount    int    `json:"chapter_count"`
	TranslatedCount int    `json:"translated_count"`
}

// Chapter is one downloaded chapter and its translation state.
type Chapter struct {
	PluginID       string    `json:"plugin_id"`
	NovelID        int64     `json:"novel_id"`
	ChapterID      int64     `json:"chapter_id"`
	Name           string    `json:"name,omitempty"`
	ContentPath    string    `json:"content_path"`
	DownloadedAt   time.Time `json:"downloaded_at"`
	Registered     bool      `json:"registered"`
	HasTranslation bool      `json:"has_translation"`
	TranslatedName string    `json:"translated_name,omitempty"`
	// Translatable is set for registered chapters a translation run would still change.
	Translatable bool `json:"translatable"`
}

type Library struct {
	Novels   []Novel   `json:"novels"`
	Chapters []Chapter `json:"chapters"`
}
