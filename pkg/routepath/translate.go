package routepath

import (
	"path/filepath"
	"strings"
)

// Root is the route of an index file directly under the controllers directory.
const Root = "/"

// indexSegment is the file name that collapses onto its parent directory.
const indexSegment = "/index"

// FromFile converts a controller file path into its route.
//
// basePath is stripped from filePath, then a trailing "/index" plus a
// recognized extension, or the extension alone, is removed. Both matches
// ignore case. Remaining segments are slug-cased independently and joined
// with "/"; segments that slug to nothing are dropped. An empty result is
// the root route.
func FromFile(basePath, filePath string, exts []string) string {
	base := strings.TrimSuffix(filepath.ToSlash(basePath), "/")
	rel := strings.TrimPrefix(filepath.ToSlash(filePath), base)
	if rel != "" && !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}

	rel = StripExt(rel, exts)

	var segments []string
	for _, seg := range strings.Split(rel, "/") {
		// Segments with no letters or digits, such as "_", slug to nothing.
		if s := Slug(seg); s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) == 0 {
		return Root
	}
	return "/" + strings.Join(segments, "/")
}

// StripExt removes the first recognized extension from the end of rel, and
// with it a preceding "/index" segment. rel is returned unchanged when it
// does not end in a recognized extension.
func StripExt(rel string, exts []string) string {
	for _, ext := range exts {
		if ext == "" || !hasSuffixFold(rel, ext) {
			continue
		}
		rel = rel[:len(rel)-len(ext)]
		if hasSuffixFold(rel, indexSegment) {
			rel = rel[:len(rel)-len(indexSegment)]
		}
		return rel
	}
	return rel
}

// Ext returns the extension of name if it is one of exts, matched without
// regard to case, and the empty string otherwise. The returned value is the
// spelling used in exts.
func Ext(name string, exts []string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return e
		}
	}
	return ""
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
