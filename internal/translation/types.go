package translation

import "context"

// ModelManager is the on-device model capability.
type ModelManager interface {
	AvailableModels(ctx context.Context) ([]string, error)
	DownloadModel(ctx context.Context, lang string) error
	DeleteModel(ctx context.Context, lang string) error
	IdentifyLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// OnlineTranslator is the networked fallback.
type OnlineTranslator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Route tells which path produced a translation.
type Route string

const (
	RouteLocal  Route = "local"
	RouteOnline Route = "online"
	// RouteSkipped means the text already was in the target language.
	RouteSkipped Route = "skipped"
)

type Result struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
	Route  Route  `json:"route"`
}
