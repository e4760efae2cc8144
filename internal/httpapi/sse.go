package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MimeLyc/chapter-translator/internal/jobs"
)

// keepAliveEvery is how many quiet ticks pass before a comment line is sent.
const keepAliveEvery = 15

// handleJobStream emits a "jobs" event with the job list whenever it changes.
// ?status= narrows the list like GET /api/jobs.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	status := jobs.Status(r.URL.Query().Get("status"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var (
		last  []byte
		seq   int
		quiet int
	)
	publish := func() error {
		payload, err := json.Marshal(filterJobs(s.queue.List(), status))
		if err != nil {
			return err
		}
		if last != nil && bytes.Equal(payload, last) {
			quiet++
			if quiet < keepAliveEvery {
				return nil
			}
			quiet = 0
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		} else {
			last = payload
			quiet = 0
			seq++
			_, err = fmt.Fprintf(w, "id: %d\nevent: jobs\ndata: %s\n\n", seq, payload)
		}
		if err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := publish(); err != nil {
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := publish(); err != nil {
				return
			}
		}
	}
}

func filterJobs(list []*jobs.TranslationJob, status jobs.Status) []*jobs.TranslationJob {
	if status == "" {
		return list
	}
	ret := make([]*jobs.TranslationJob, 0, len(list))
	for _, job := range list {
		if job.Status == status {
			ret = append(ret, job)
		}
	}
	return ret
}
