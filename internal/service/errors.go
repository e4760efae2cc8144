package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/chapter-translator/internal/translation"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

// ErrorKind is the discriminant of a TaskError.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindNotFound
	KindDependencyMissing
	KindEmptyContent
	KindInconsistentState
	KindOnlineFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindDependencyMissing:
		return "DependencyMissing"
	case KindEmptyContent:
		return "EmptyContent"
	case KindInconsistentState:
		return "InconsistentState"
	case KindOnlineFailure:
		return "OnlineFailure"
	default:
		return "Generic"
	}
}

type TaskError struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Cause   error
}

func NewError(kind ErrorKind, message string) *TaskError {
	return &TaskError{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(kind ErrorKind, message string, cause error) *TaskError {
	return &TaskError{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *TaskError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Kind, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

func (e *TaskError) WithContext(key string, value any) *TaskError {
	e.Context[key] = value
	return e
}

// Deferred marks errors after which the task should be retried later.
func (e *TaskError) Deferred() bool {
	return e.Kind == KindDependencyMissing
}

// KindOf classifies any error returned by a translation task.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindGeneric
	}
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindGeneric
	}
	if errors.Is(err, translation.ErrOnlineTranslation) {
		return KindOnlineFailure
	}
	return KindGeneric
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(kind ErrorKind) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

// Handle logs err with advice and reports whether it was a classified task error.
func (h *DefaultErrorHandler) Handle(err error) bool {
	if err == nil {
		return true
	}
	kind := KindOf(err)
	var taskErr *TaskError
	if !errors.As(err, &taskErr) && kind == KindGeneric {
		log.Error("Unknown Error: %v", err)
		return false
	}

	log.Error("Error Detail: %v\n advice: %s", err, h.GetAdvice(kind))
	return true
}

func (h *DefaultErrorHandler) GetAdvice(kind ErrorKind) string {
	switch kind {
	case KindNotFound:
		return "The chapter is not registered; add its metadata before translating"
	case KindDependencyMissing:
		return "The chapter content is not downloaded yet; the job will be retried once it is"
	case KindEmptyContent:
		return "The downloaded chapter is blank; download it again"
	case KindInconsistentState:
		return "The chapter is flagged as translated but has no stored translation; check the database"
	case KindOnlineFailure:
		return "Check ONLINE_API_KEY and network access, or install on-device models for this language pair"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(KindGeneric, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
