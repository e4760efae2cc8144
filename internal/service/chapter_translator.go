package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/MimeLyc/chapter-translator/internal/persistence"
	"github.com/MimeLyc/chapter-translator/internal/progress"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

// ChapterTranslator drives the translation of one chapter at a time.
// Callers must not run two tasks for the same chapter concurrently; the job
// queue dedupes on chapter identity for that.
type ChapterTranslator struct {
	content    ContentStore
	chapters   ChapterRepository
	settings   SettingsReader
	translator Translator
}

func NewChapterTranslator(
	content ContentStore,
	chapters ChapterRepository,
	settings SettingsReader,
	translator Translator,
) *ChapterTranslator {
	return &ChapterTranslator{
		content:    content,
		chapters:   chapters,
		settings:   settings,
		translator: translator,
	}
}

// TranslateChapter runs the task and reports every state change to observer.
// A DependencyMissing error leaves the task parked rather than finished.
func (t *ChapterTranslator) TranslateChapter(ctx context.Context, in ChapterInput, observer progress.Observer) error {
	run := &chapterRun{ChapterTranslator: t, in: in, observer: observer}

	err := run.execute(ctx)
	switch {
	case err == nil:
		return nil
	case IsKind(err, KindDependencyMissing):
		run.emit(run.state.Wait("waiting for chapter content"))
	default:
		log.Error("Chapter %d translation failed: %v", in.ChapterID, err)
		run.emit(run.state.Fail(err))
	}
	return err
}

// chapterRun is the state of a single invocation.
type chapterRun struct {
	*ChapterTranslator
	in       ChapterInput
	observer progress.Observer
	state    progress.TaskProgress

	targetLang string
}

func (r *chapterRun) emit(next progress.TaskProgress) {
	r.state = next
	if r.observer != nil {
		r.observer.Observe(next)
	}
}

func (r *chapterRun) advance(p float64, text string) {
	r.emit(r.state.Advance(p, text))
}

// target reads the settings once per run and reuses the value.
func (r *chapterRun) target() (string, error) {
	if r.targetLang != "" {
		return r.targetLang, nil
	}
	settings, err := r.settings.GetTranslationSettings()
	if err != nil {
		return "", fmt.Errorf("read translation settings: %w", err)
	}
	r.targetLang = settings.TargetLang
	return r.targetLang, nil
}

func (r *chapterRun) execute(ctx context.Context) error {
	r.emit(progress.Start("starting"))

	info, err := r.chapters.GetChapterInfo(ctx, r.in.ChapterID)
	if err != nil {
		return fmt.Errorf("get chapter info: %w", err)
	}
	if info == nil {
		return NewError(KindNotFound, fmt.Sprintf("chapter %d not found", r.in.ChapterID)).
			WithContext("chapter_id", r.in.ChapterID)
	}
	if info.HasTranslation && info.TranslatedName != "" {
		r.emit(r.state.Finish("already translated"))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.advance(progress.LocatingContent, "locating chapter content")
	contentPath := r.content.ChapterPath(r.in.PluginID, r.in.NovelID, r.in.ChapterID)
	exists, err := r.content.Exists(ctx, contentPath)
	if err != nil {
		return fmt.Errorf("check chapter content: %w", err)
	}
	if !exists {
		return NewError(KindDependencyMissing, "chapter content is not downloaded").
			WithContext("chapter_id", r.in.ChapterID).
			WithContext("path", contentPath)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.advance(progress.ReadingContent, "reading chapter content")
	raw, err := r.content.ReadFile(ctx, contentPath)
	if errors.Is(err, fs.ErrNotExist) {
		return NewErrorWithCause(KindDependencyMissing, "chapter content was removed before it could be read", err).
			WithContext("chapter_id", r.in.ChapterID).
			WithContext("path", contentPath)
	}
	if err != nil {
		return fmt.Errorf("read chapter content: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return NewError(KindEmptyContent, "chapter content is empty").
			WithContext("chapter_id", r.in.ChapterID)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	var record persistence.TranslationRecord
	produced := false
	if !info.HasTranslation {
		r.advance(progress.Translating, "translating chapter")
		target, err := r.target()
		if err != nil {
			return err
		}
		res, err := r.translator.SmartTranslate(ctx, raw, target)
		if err != nil {
			return err
		}
		log.Info("Chapter %d translated %s -> %s via %s", r.in.ChapterID, res.Source, res.Target, res.Route)
		record = persistence.TranslationRecord{
			ChapterID:   r.in.ChapterID,
			Content:     PostProcess(res.Text),
			Model:       RecordModel,
			Instruction: RecordInstruction,
		}
		produced = true
	} else {
		existing, err := r.chapters.GetTranslation(ctx, r.in.ChapterID)
		if err != nil {
			return fmt.Errorf("get translation: %w", err)
		}
		if existing == nil {
			return NewError(KindInconsistentState, "chapter is flagged as translated but has no translation").
				WithContext("chapter_id", r.in.ChapterID)
		}
		record = *existing
		r.advance(progress.ContentReused, "already translated")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	title := info.TranslatedName
	if title == "" && strings.TrimSpace(info.Name) != "" {
		r.advance(progress.TranslatingName, "translating chapter name")
		target, err := r.target()
		if err != nil {
			return err
		}
		res, err := r.translator.SmartTranslate(ctx, info.Name, target)
		if err != nil {
			return err
		}
		title = strings.TrimSpace(res.Text)
	} else if title != "" {
		r.advance(progress.NameReused, "chapter name already translated")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.advance(progress.Persisting, "saving translation")
	switch {
	case produced && record.Content != "":
		if err := r.chapters.SaveTranslation(ctx, r.in.ChapterID, record.Content, record.Model, record.Instruction, title); err != nil {
			return fmt.Errorf("save translation: %w", err)
		}
	case !produced && title != "" && title != info.TranslatedName:
		// Reused records are never rewritten, so this title is translated again on every run.
		log.Debug("Chapter %d reuses its stored translation; translated name %q is not saved", r.in.ChapterID, title)
	}

	r.emit(r.state.Finish("completed"))
	return nil
}

// PostProcess keeps paragraph layout when the text is rendered as HTML.
func PostProcess(text string) string {
	text = strings.ReplaceAll(text, "\n", "<br/>")
	return strings.ReplaceAll(text, "  ", "&nbsp;&nbsp;")
}
