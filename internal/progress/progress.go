// Package progress holds the transient progress state of a chapter translation
// task and the pure transitions between its states.
package progress

import "fmt"

// Milestones reported by a chapter translation run, in order.
const (
	Started         = 0.0
	LocatingContent = 0.1
	ReadingContent  = 0.2
	Translating     = 0.4
	ContentReused   = 0.6
	TranslatingName = 0.7
	NameReused      = 0.8
	Persisting      = 0.9
	Completed       = 1.0
)

// TaskProgress is a snapshot of one task's progress.
type TaskProgress struct {
	IsRunning bool    `json:"is_running"`
	Progress  float64 `json:"progress"`
	Text      string  `json:"progress_text"`
}

// Start returns the initial running state.
func Start(text string) TaskProgress {
	return TaskProgress{
		IsRunning: true,
		Progress:  Started,
		Text:      text,
	}
}

// Advance moves to value p. Progress never goes backwards.
func (t TaskProgress) Advance(p float64, text string) TaskProgress {
	next := t
	next.Progress = clamp(max(t.Progress, p))
	next.Text = text
	return next
}

// Finish returns the terminal state of a successful run.
func (t TaskProgress) Finish(text string) TaskProgress {
	return TaskProgress{
		IsRunning: false,
		Progress:  Completed,
		Text:      text,
	}
}

// Fail returns the terminal state of a failed run.
func (t TaskProgress) Fail(err error) TaskProgress {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return TaskProgress{
		IsRunning: false,
		Progress:  Completed,
		Text:      fmt.Sprintf("Error: %s", msg),
	}
}

// Wait parks the task without completing it; the value is kept so a later
// retry still reports a non-decreasing sequence.
func (t TaskProgress) Wait(text string) TaskProgress {
	next := t
	next.IsRunning = false
	next.Text = text
	return next
}

// Terminal reports whether the state ends a run.
func (t TaskProgress) Terminal() bool {
	return !t.IsRunning && t.Progress >= Completed
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > Completed {
		return Completed
	}
	return p
}

// Observer receives every state produced during a run, synchronously.
type Observer interface {
	Observe(TaskProgress)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(TaskProgress)

func (f ObserverFunc) Observe(p TaskProgress) {
	if f != nil {
		f(p)
	}
}

// Recorder keeps every observed state, mostly for tests and CLI summaries.
type Recorder struct {
	States []TaskProgress
}

func (r *Recorder) Observe(p TaskProgress) {
	r.States = append(r.States, p)
}

// Values returns the progress values in the order they were observed.
func (r *Recorder) Values() []float64 {
	ret := make([]float64, 0, len(r.States))
	for _, s := range r.States {
		ret = append(ret, s.Progress)
	}
	return ret
}

// Last returns the most recent state, or the zero value.
func (r *Recorder) Last() TaskProgress {
	if len(r.States) == 0 {
		return TaskProgress{}
	}
	return r.States[len(r.States)-1]
}
