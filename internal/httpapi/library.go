package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MimeLyc/chapter-translator/internal/jobs"
)

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.library == nil {
		writeError(w, http.StatusNotImplemented, "library is not configured")
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		s.library.Invalidate()
	}

	lib, err := s.library.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

// handleLibraryTranslate enqueues every translatable chapter on disk,
// optionally limited to one plugin and novel.
func (s *Server) handleLibraryTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.library == nil {
		writeError(w, http.StatusNotImplemented, "library is not configured")
		return
	}

	s.library.Invalidate()
	lib, err := s.library.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pluginID := r.URL.Query().Get("plugin_id")
	novelID := r.URL.Query().Get("novel_id")

	queued := make([]*jobs.TranslationJob, 0)
	for _, chapter := range lib.Chapters {
		if !chapter.Translatable {
			continue
		}
		if pluginID != "" && chapter.PluginID != pluginID {
			continue
		}
		if novelID != "" && strconv.FormatInt(chapter.NovelID, 10) != novelID {
			continue
		}
		job, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source: "library",
			Payload: jobs.ChapterPayload{
				ChapterID:   chapter.ChapterID,
				NovelID:     chapter.NovelID,
				PluginID:    chapter.PluginID,
				ChapterName: chapter.Name,
			},
		})
		if created {
			queued = append(queued, job)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"queued": len(queued),
		"jobs":   queued,
	})
}
