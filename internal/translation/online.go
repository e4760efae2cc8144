package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/MimeLyc/chapter-translator/internal/config"
)

// ErrOnlineTranslation marks every failure of the online fallback.
var ErrOnlineTranslation = errors.New("online translation failed")

const translatedTextPath = "data.translations.0.translatedText"

type OnlineError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *OnlineError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", ErrOnlineTranslation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", ErrOnlineTranslation, msg)
}

func (e *OnlineError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrOnlineTranslation}
	}
	return []error{ErrOnlineTranslation, e.Cause}
}

// OnlineClient calls a Google Translate v2 compatible endpoint.
type OnlineClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewOnlineClient(cfg config.OnlineConfig) *OnlineClient {
	return &OnlineClient{
		endpoint: cfg.APIURL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.TimeoutDuration()},
	}
}

type onlineRequest struct {
	Q      string `json:"q"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Format string `json:"format"`
}

// Translate succeeds only when the response carries a translated text,
// whatever the HTTP status.
func (c *OnlineClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "und" {
		source = ""
	}
	body, err := json.Marshal(onlineRequest{Q: text, Source: source, Target: target, Format: "text"})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint, err := c.requestURL()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &OnlineError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &OnlineError{StatusCode: resp.StatusCode, Cause: err}
	}

	translated := gjson.GetBytes(respBody, translatedTextPath)
	if !translated.Exists() || translated.String() == "" {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = "response has no translated text"
		}
		return "", &OnlineError{StatusCode: resp.StatusCode, Message: msg}
	}
	return translated.String(), nil
}

func (c *OnlineClient) requestURL() (string, error) {
	u, err := url.Parse(strings.TrimSpace(c.endpoint))
	if err != nil {
		return "", fmt.Errorf("invalid online endpoint: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
