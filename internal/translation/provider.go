package translation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/MimeLyc/chapter-translator/pkg/log"
)

// Provider picks between the on-device engine and the online fallback.
type Provider struct {
	models ModelManager
	online OnlineTranslator
}

func NewProvider(models ModelManager, online OnlineTranslator) *Provider {
	return &Provider{models: models, online: online}
}

// DetectLanguage identifies the language of text, ignoring HTML markup.
func (p *Provider) DetectLanguage(ctx context.Context, text string) (string, error) {
	lang, err := p.models.IdentifyLanguage(ctx, plainText(text))
	if err != nil {
		return "", fmt.Errorf("identify language: %w", err)
	}
	return lang, nil
}

func (p *Provider) GetAvailableModels(ctx context.Context) ([]string, error) {
	return p.models.AvailableModels(ctx)
}

func (p *Provider) DownloadModel(ctx context.Context, lang string) error {
	return p.models.DownloadModel(ctx, lang)
}

func (p *Provider) DeleteModel(ctx context.Context, lang string) error {
	return p.models.DeleteModel(ctx, lang)
}

// SmartTranslate translates text into target. The local engine is used only
// when models for both the detected source and the target are installed;
// a local failure is returned as is and never retried online.
func (p *Provider) SmartTranslate(ctx context.Context, text, target string) (Result, error) {
	source, err := p.DetectLanguage(ctx, text)
	if err != nil {
		return Result{}, err
	}
	ret := Result{Source: source, Target: target}

	if sameLanguage(source, target) {
		log.Debug("Text already in %s, skipping translation", target)
		ret.Text = text
		ret.Route = RouteSkipped
		return ret, nil
	}

	installed, err := p.models.AvailableModels(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("query installed models: %w", err)
	}

	if slices.Contains(installed, source) && slices.Contains(installed, target) {
		log.Debug("Translating %s -> %s on device", source, target)
		ret.Text, err = p.models.Translate(ctx, text, source, target)
		if err != nil {
			return Result{}, err
		}
		ret.Route = RouteLocal
		return ret, nil
	}

	log.Debug("Models for %s -> %s not installed, using online translation", source, target)
	ret.Text, err = p.online.Translate(ctx, text, source, target)
	if err != nil {
		return Result{}, err
	}
	ret.Route = RouteOnline
	return ret, nil
}

func sameLanguage(source, target string) bool {
	if source == "" || source == "und" {
		return false
	}
	s, err := language.Parse(source)
	if err != nil {
		return false
	}
	t, err := language.Parse(target)
	if err != nil {
		return false
	}
	return s == t
}

func plainText(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}
	return doc.Text()
}
