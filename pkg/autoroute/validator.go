package autoroute

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/autoroute/pkg/routepath"
)

// ConflictError reports controller files that derive the same route without
// being extension variants of one another, e.g. "SubPath.go" and
// "sub_path.go" both mapping to /sub-path.
type ConflictError struct {
	// Route is the contested route.
	Route string

	// Files are the controller files deriving Route, sorted.
	Files []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("autoroute: route %s derived from %d controllers (%s)",
		e.Route, len(e.Files), strings.Join(e.Files, ", "))
}

// Is reports whether target is ErrRouteConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrRouteConflict }

// MultiConflictError wraps every conflict found in one build.
type MultiConflictError struct {
	Conflicts []*ConflictError
}

func (e *MultiConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return e.Conflicts[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d route conflicts:\n", len(e.Conflicts)))
	for i, c := range e.Conflicts {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, c.Error()))
	}
	return sb.String()
}

// Unwrap exposes the individual conflicts to errors.Is and errors.As.
func (e *MultiConflictError) Unwrap() []error {
	errs := make([]error, len(e.Conflicts))
	for i, c := range e.Conflicts {
		errs[i] = c
	}
	return errs
}

// CheckConflicts returns a *MultiConflictError if two infos share a route,
// and nil otherwise. Conflicts are reported in route order.
func CheckConflicts(infos []ControllerInfo) error {
	byRoute := make(map[string][]string)
	for _, info := range infos {
		byRoute[info.Route] = append(byRoute[info.Route], info.Path)
	}

	var conflicts []*ConflictError
	for route, files := range byRoute {
		if len(files) <= 1 {
			continue
		}
		sort.Strings(files)
		conflicts = append(conflicts, &ConflictError{Route: route, Files: files})
	}
	if len(conflicts) == 0 {
		return nil
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Route < conflicts[j].Route })
	return &MultiConflictError{Conflicts: conflicts}
}

// SortBySpecificity orders infos by route segment count, most segments
// first. Routes with equal counts keep their relative order, so a router
// that matches in registration order never lets a shorter route shadow a
// longer one.
func SortBySpecificity(infos []ControllerInfo) {
	sort.SliceStable(infos, func(i, j int) bool {
		return routepath.SegmentCount(infos[i].Route) > routepath.SegmentCount(infos[j].Route)
	})
}

// FormatConflict renders a conflict for terminal output:
//
//	route /sub-path is derived from 2 controllers
//	  /app/controllers/SubPath.go → /sub-path
//	  /app/controllers/sub_path.go → /sub-path
func FormatConflict(c *ConflictError) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("route %s is derived from %d controllers\n", c.Route, len(c.Files)))
	for _, f := range c.Files {
		sb.WriteString(fmt.Sprintf("  %s → %s\n", f, c.Route))
	}
	return sb.String()
}
