package routepath

import "strings"

// IDParam is the name of the parameter appended to singular routes.
const IDParam = "id"

// SegmentCount returns the number of non-empty "/" separated segments in
// route. The root route has none.
func SegmentCount(route string) int {
	n := 0
	for _, seg := range strings.Split(route, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

// WithID returns route with any trailing slash removed and the ":id"
// parameter appended.
func WithID(route string) string {
	return strings.TrimSuffix(route, "/") + "/:" + IDParam
}

// IsRoot reports whether route is the root route.
func IsRoot(route string) bool {
	return route == Root
}

// ParamNames returns the names of the ":name" parameters in pattern, in
// order of appearance.
func ParamNames(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			names = append(names, seg[1:])
		}
	}
	return names
}

// Convert rewrites the ":name" parameters of pattern with wrap, leaving
// static segments untouched. Router backends use it to translate patterns
// into their own syntax, e.g. "{name}".
func Convert(pattern string, wrap func(name string) string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			segments[i] = wrap(seg[1:])
		}
	}
	return strings.Join(segments, "/")
}
