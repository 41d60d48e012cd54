package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"go/scanner"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vango-dev/autoroute/pkg/autoroute"
	"github.com/vango-dev/autoroute/pkg/source"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig Category = "config"
	CategoryBuild  Category = "build"
	CategoryServe  Category = "serve"
	CategoryCLI    Category = "cli"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a coded error with an optional source location and a hint.
type Error struct {
	// Code is a unique error identifier (e.g., "A203").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the source code location where the error occurred.
	Location *Location

	// Context contains surrounding source code lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds source location to the error.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithLocationFromError extracts the location from a "file:line:column:
// message" error, as produced by go/parser.
func (e *Error) WithLocationFromError(err error) *Error {
	if err == nil {
		return e
	}
	parts := strings.SplitN(err.Error(), ":", 4)
	if len(parts) >= 3 {
		var line, col int
		fmt.Sscanf(parts[1], "%d", &line)
		fmt.Sscanf(parts[2], "%d", &col)
		if line > 0 {
			e.Location = &Location{File: parts[0], Line: line, Column: col}
			e.Context = readContextLines(parts[0], line, 5)
		}
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates an Error with a formatted message and no code.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in an Error with code, unless it already is one.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// Classify picks the code for an error returned by autoroute or the source
// package. Unrecognized errors get fallback. Go syntax errors add their
// source location.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	code := fallback
	switch {
	case stderrors.Is(err, autoroute.ErrRouteConflict):
		code = "A203"
	case stderrors.Is(err, source.ErrAmbiguousAction):
		code = "A206"
	case stderrors.Is(err, autoroute.ErrNotRegistered):
		code = "A205"
	case stderrors.Is(err, autoroute.ErrLoad):
		code = "A202"
	case stderrors.Is(err, doublestar.ErrBadPattern):
		code = "A204"
	case stderrors.Is(err, autoroute.ErrDiscovery):
		code = "A201"
	case stderrors.Is(err, source.ErrNoModule):
		code = "A207"
	}

	e = New(code).Wrap(err)
	if code == "A203" {
		e.WithDetail(conflictDetail(err))
	}
	var list scanner.ErrorList
	if stderrors.As(err, &list) && len(list) > 0 {
		pos := list[0].Pos
		e.WithLocation(pos.Filename, pos.Line, pos.Column)
	}
	return e
}

// conflictDetail lists every route conflict in err, one block per route.
func conflictDetail(err error) string {
	var conflicts []*autoroute.ConflictError
	var multi *autoroute.MultiConflictError
	var single *autoroute.ConflictError
	switch {
	case stderrors.As(err, &multi):
		conflicts = multi.Conflicts
	case stderrors.As(err, &single):
		conflicts = []*autoroute.ConflictError{single}
	}

	var sb strings.Builder
	for _, c := range conflicts {
		sb.WriteString(autoroute.FormatConflict(c))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
