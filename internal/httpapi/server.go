package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/library"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
)

type chapterStore interface {
	GetChapterInfo(ctx context.Context, chapterID int64) (*persistence.ChapterInfo, error)
	UpsertChapter(ctx context.Context, info persistence.ChapterInfo) error
	GetTranslation(ctx context.Context, chapterID int64) (*persistence.TranslationRecord, error)
}

type settingsStore interface {
	GetTranslationSettings() (config.TranslationSettings, error)
	SetTranslationSettings(next config.TranslationSettings) (config.TranslationSettings, error)
}

type modelManager interface {
	GetAvailableModels(ctx context.Context) ([]string, error)
	DownloadModel(ctx context.Context, lang string) error
	DeleteModel(ctx context.Context, lang string) error
}

type libraryScanner interface {
	Scan(ctx context.Context) (*library.Library, error)
	Invalidate()
}

type Server struct {
	queue    *jobs.Queue
	chapters chapterStore
	settings settingsStore
	models   modelManager
	library  libraryScanner

	streamInterval time.Duration

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithChapterStore(store chapterStore) Option {
	return func(s *Server) {
		s.chapters = store
	}
}

func WithSettingsStore(store settingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithModelManager(models modelManager) Option {
	return func(s *Server) {
		s.models = models
	}
}

func WithLibrary(scanner libraryScanner) Option {
	return func(s *Server) {
		s.library = scanner
	}
}

func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		queue:          queue,
		streamInterval: time.Second,
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/chapters/translate", s.handleTranslateChapter)
	s.mux.HandleFunc("/api/chapters/{id}", s.handleChapter)
	s.mux.HandleFunc("/api/chapters/{id}/translation", s.handleChapterTranslation)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/jobs/requeue", s.handleRequeue)
	s.mux.HandleFunc("/api/jobs/{id}", s.handleJobDetail)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/languages", s.handleLanguages)
	s.mux.HandleFunc("/api/models", s.handleModels)
	s.mux.HandleFunc("/api/models/{lang}", s.handleModel)
	s.mux.HandleFunc("/api/library", s.handleLibrary)
	s.mux.HandleFunc("/api/library/translate", s.handleLibraryTranslate)
}
