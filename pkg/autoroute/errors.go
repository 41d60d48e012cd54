package autoroute

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

var (
	// ErrDiscovery wraps filesystem failures while finding controllers.
	ErrDiscovery = errors.New("autoroute: controller discovery failed")

	// ErrLoad wraps failures to load a discovered controller file.
	ErrLoad = errors.New("autoroute: controller load failed")

	// ErrRouteConflict is matched by errors reporting two controllers that
	// derive the same route.
	ErrRouteConflict = errors.New("autoroute: route conflict")

	// ErrNotRegistered is returned by a Registry asked for an unknown key.
	ErrNotRegistered = errors.New("autoroute: controller not registered")
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError attaches an HTTP status to an error.
type StatusError struct {
	Code int
	Err  error
}

// NewStatusError returns err with status code.
func NewStatusError(code int, err error) *StatusError {
	return &StatusError{Code: code, Err: err}
}

// Errorf returns a StatusError with a formatted message.
func Errorf(code int, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Code)
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

// PanicError is the error an action panic is turned into.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("autoroute: action panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// ErrorHandler writes the response for a failed request. It receives errors
// from actions, hooks and parameter parsing unchanged.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler logs err and answers with a plain-text status. Client
// errors show their message; server errors only show the status text.
func DefaultErrorHandler(logger *slog.Logger) ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := StatusOf(err)

		attrs := []any{"status", status, "method", r.Method, "url", r.URL.String(), "error", err}
		if info, ok := InfoFromContext(r.Context()); ok {
			attrs = append(attrs, "action", info.Action, "route", info.Route)
		}
		var pe *PanicError
		if errors.As(err, &pe) {
			attrs = append(attrs, "stack", string(pe.Stack))
		}

		msg := http.StatusText(status)
		if status < http.StatusInternalServerError {
			logger.Debug("autoroute: request failed", attrs...)
			msg = err.Error()
		} else {
			logger.Error("autoroute: request failed", attrs...)
		}
		http.Error(w, msg, status)
	}
}
