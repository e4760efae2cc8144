package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
)

type translateChapterRequest struct {
	Source      string `json:"source"`
	ChapterID   int64  `json:"chapter_id"`
	NovelID     int64  `json:"novel_id"`
	PluginID    string `json:"plugin_id"`
	ChapterName string `json:"chapter_name"`
	NovelName   string `json:"novel_name"`
}

func (s *Server) handleTranslateChapter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req translateChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ChapterID <= 0 {
		writeError(w, http.StatusBadRequest, "chapter_id is required")
		return
	}
	if strings.TrimSpace(req.PluginID) == "" {
		writeError(w, http.StatusBadRequest, "plugin_id is required")
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	if s.chapters != nil {
		info, err := s.chapters.GetChapterInfo(r.Context(), req.ChapterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if info == nil {
			writeError(w, http.StatusNotFound, "chapter not found")
			return
		}
		if req.ChapterName == "" {
			req.ChapterName = info.Name
		}
	}

	job, created := s.queue.Enqueue(jobs.EnqueueRequest{
		Source: req.Source,
		Payload: jobs.ChapterPayload{
			ChapterID:   req.ChapterID,
			NovelID:     req.NovelID,
			PluginID:    req.PluginID,
			ChapterName: req.ChapterName,
			NovelName:   req.NovelName,
		},
	})
	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     job,
	})
}

type upsertChapterRequest struct {
	NovelID  int64  `json:"novel_id"`
	PluginID string `json:"plugin_id"`
	Name     string `json:"name"`
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	if s.chapters == nil {
		writeError(w, http.StatusNotImplemented, "chapter store is not configured")
		return
	}
	chapterID, ok := chapterIDFromPath(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, err := s.chapters.GetChapterInfo(r.Context(), chapterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if info == nil {
			writeError(w, http.StatusNotFound, "chapter not found")
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodPut:
		var req upsertChapterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(req.PluginID) == "" {
			writeError(w, http.StatusBadRequest, "plugin_id is required")
			return
		}
		if err := s.chapters.UpsertChapter(r.Context(), persistence.ChapterInfo{
			ChapterID: chapterID,
			NovelID:   req.NovelID,
			PluginID:  req.PluginID,
			Name:      req.Name,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		info, err := s.chapters.GetChapterInfo(r.Context(), chapterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, info)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleChapterTranslation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.chapters == nil {
		writeError(w, http.StatusNotImplemented, "chapter store is not configured")
		return
	}
	chapterID, ok := chapterIDFromPath(w, r)
	if !ok {
		return
	}

	record, err := s.chapters.GetTranslation(r.Context(), chapterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "translation not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, filterJobs(s.queue.List(), jobs.Status(r.URL.Query().Get("status"))))
}

func (s *Server) handleRequeue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requeued": s.queue.RequeueWaiting(),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetTranslationSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.TranslationSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.SetTranslationSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type languageResponse struct {
	config.Language
	Installed bool `json:"installed"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	installed := make(map[string]bool)
	if s.models != nil {
		codes, err := s.models.GetAvailableModels(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, code := range codes {
			installed[code] = true
		}
	}

	langs := config.SupportedLanguages()
	ret := make([]languageResponse, 0, len(langs))
	for _, lang := range langs {
		ret = append(ret, languageResponse{Language: lang, Installed: installed[lang.Code]})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.models == nil {
		writeError(w, http.StatusNotImplemented, "model manager is not configured")
		return
	}
	codes, err := s.models.GetAvailableModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models": codes,
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeError(w, http.StatusNotImplemented, "model manager is not configured")
		return
	}
	lang := r.PathValue("lang")
	if !config.IsSupportedLanguage(lang) {
		writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := s.models.DownloadModel(r.Context(), lang); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lang": lang, "installed": true})
	case http.MethodDelete:
		if err := s.models.DeleteModel(r.Context(), lang); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lang": lang, "installed": false})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func chapterIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid chapter id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
