package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// DefaultTargetLang is used when the user never picked a target language.
const DefaultTargetLang = "es"

// TranslationSettings is the user's translation preference.
type TranslationSettings struct {
	TargetLang string `json:"targetLang"`
}

func (s TranslationSettings) Validate() error {
	if strings.TrimSpace(s.TargetLang) == "" {
		return fmt.Errorf("targetLang is required")
	}
	if _, err := language.Parse(s.TargetLang); err != nil {
		return fmt.Errorf("invalid targetLang: %w", err)
	}
	return nil
}

// normalized trims the code and fills in the default.
func (s TranslationSettings) normalized(def string) TranslationSettings {
	lang := strings.TrimSpace(s.TargetLang)
	if lang == "" {
		lang = def
	}
	return TranslationSettings{TargetLang: lang}
}

func LoadTranslationSettingsFile(path string) (TranslationSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TranslationSettings{}, err
	}
	var settings TranslationSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return TranslationSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteTranslationSettingsFile(path string, settings TranslationSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// TranslationSettingsStore is the process-wide settings singleton backed by a JSON file.
type TranslationSettingsStore struct {
	path       string
	defaultTag string

	mu      sync.RWMutex
	current TranslationSettings
}

// NewTranslationSettingsStore loads path if it exists. A missing file yields
// the default target language and is only created on the first Set.
func NewTranslationSettingsStore(path string, defaultLang string) (*TranslationSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if strings.TrimSpace(defaultLang) == "" {
		defaultLang = DefaultTargetLang
	}

	current := TranslationSettings{TargetLang: defaultLang}
	loaded, err := LoadTranslationSettingsFile(path)
	switch {
	case err == nil:
		current = loaded.normalized(defaultLang)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	return &TranslationSettingsStore{
		path:       path,
		defaultTag: defaultLang,
		current:    current,
	}, nil
}

func (s *TranslationSettingsStore) GetTranslationSettings() (TranslationSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.normalized(s.defaultTag), nil
}

func (s *TranslationSettingsStore) SetTranslationSettings(next TranslationSettings) (TranslationSettings, error) {
	next.TargetLang = strings.TrimSpace(next.TargetLang)
	if err := next.Validate(); err != nil {
		return TranslationSettings{}, err
	}
	if err := WriteTranslationSettingsFile(s.path, next); err != nil {
		return TranslationSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
