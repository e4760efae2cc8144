package httpapi

import (
	"net/http"

	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
)

type jobDetailResponse struct {
	Job         *jobs.TranslationJob           `json:"job"`
	Chapter     *persistence.ChapterInfo       `json:"chapter,omitempty"`
	Translation *persistence.TranslationRecord `json:"translation,omitempty"`
	// Preview holds the first characters of the stored translation.
	Preview string `json:"preview,omitempty"`
}

const jobPreviewRunes = 280

func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	job, ok := s.queue.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	ret := jobDetailResponse{Job: job}
	if s.chapters != nil {
		info, err := s.chapters.GetChapterInfo(r.Context(), job.Payload.ChapterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ret.Chapter = info

		if job.Status == jobs.StatusSuccess {
			record, err := s.chapters.GetTranslation(r.Context(), job.Payload.ChapterID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if record != nil {
				ret.Translation = record
				ret.Preview = preview(record.Content, jobPreviewRunes)
			}
		}
	}
	writeJSON(w, http.StatusOK, ret)
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
