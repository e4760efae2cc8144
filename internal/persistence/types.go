package persistence

import "time"

// ChapterInfo is the metadata row of a chapter known to the library.
type ChapterInfo struct {
	ChapterID      int64     `json:"chapter_id"`
	NovelID        int64     `json:"novel_id"`
	PluginID       string    `json:"plugin_id"`
	Name           string    `json:"name"`
	TranslatedName string    `json:"translated_name,omitempty"`
	HasTranslation bool      `json:"has_translation"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TranslationRecord is the stored translation of one chapter.
type TranslationRecord struct {
	ChapterID       int64     `json:"chapter_id"`
	Content         string    `json:"content"`
	Model           string    `json:"model"`
	Instruction     string    `json:"instruction"`
	TranslatedTitle string    `json:"translated_title,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
