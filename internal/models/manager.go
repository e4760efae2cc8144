package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

const (
	modelExt = ".model"
	// UndeterminedLanguage is returned when detection has no answer.
	UndeterminedLanguage = "und"
)

// LocalManager manages on-device model files and talks to the local
// translation engine that loads them.
type LocalManager struct {
	fs            afero.Fs
	dir           string
	repositoryURL string
	engineURL     string
	client        *http.Client

	mu sync.Mutex
}

type Option func(*LocalManager)

func WithFs(fs afero.Fs) Option {
	return func(m *LocalManager) {
		m.fs = fs
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(m *LocalManager) {
		m.client = client
	}
}

func NewLocalManager(cfg config.ModelsConfig, opts ...Option) *LocalManager {
	m := &LocalManager{
		fs:            afero.NewOsFs(),
		dir:           cfg.Dir,
		repositoryURL: strings.TrimRight(cfg.RepositoryURL, "/"),
		engineURL:     strings.TrimRight(cfg.EngineURL, "/"),
		client:        &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AvailableModels lists installed model codes, sorted. The directory is read
// on every call since models come and go between translations.
func (m *LocalManager) AvailableModels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list models: %w", err)
	}

	ret := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), modelExt) {
			continue
		}
		ret = append(ret, strings.TrimSuffix(entry.Name(), modelExt))
	}
	sort.Strings(ret)
	return ret, nil
}

func (m *LocalManager) IsInstalled(ctx context.Context, lang string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(m.fs, m.modelPath(lang))
}

// DownloadModel fetches {repository}/{lang}.model and installs it.
func (m *LocalManager) DownloadModel(ctx context.Context, lang string) error {
	if err := validateCode(lang); err != nil {
		return err
	}
	if m.repositoryURL == "" {
		return fmt.Errorf("model repository is not configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	url := m.repositoryURL + "/" + lang + modelExt
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("download model %s: %w", lang, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model %s: %s", lang, resp.Status)
	}

	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	tmpPath := m.modelPath(lang) + ".tmp"
	f, err := m.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = m.fs.Remove(tmpPath)
		return fmt.Errorf("write model %s: %w", lang, err)
	}
	if err := m.fs.Rename(tmpPath, m.modelPath(lang)); err != nil {
		_ = m.fs.Remove(tmpPath)
		return fmt.Errorf("install model %s: %w", lang, err)
	}

	log.Info("Installed model %s (%d bytes)", lang, n)
	return nil
}

// DeleteModel removes an installed model. Deleting a missing model is a no-op.
func (m *LocalManager) DeleteModel(ctx context.Context, lang string) error {
	if err := validateCode(lang); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.Remove(m.modelPath(lang)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete model %s: %w", lang, err)
	}
	log.Info("Deleted model %s", lang)
	return nil
}

// IdentifyLanguage returns the ISO 639-1 code of text, or "und".
func (m *LocalManager) IdentifyLanguage(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return UndeterminedLanguage, nil
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return UndeterminedLanguage, nil
	}
	return language.Make(code).String(), nil
}

type engineRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

// Translate runs text through the local engine.
func (m *LocalManager) Translate(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(engineRequest{Q: text, Source: source, Target: target, Format: "text"})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.engineURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local engine: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	translated := gjson.GetBytes(respBody, "translatedText")
	if !translated.Exists() {
		if msg := gjson.GetBytes(respBody, "error").String(); msg != "" {
			return "", fmt.Errorf("local engine: %s", msg)
		}
		return "", fmt.Errorf("local engine: %s", resp.Status)
	}
	return translated.String(), nil
}

func (m *LocalManager) modelPath(lang string) string {
	return filepath.Join(m.dir, lang+modelExt)
}

func validateCode(lang string) error {
	if !config.IsSupportedLanguage(lang) {
		return fmt.Errorf("unsupported model language %q", lang)
	}
	return nil
}
