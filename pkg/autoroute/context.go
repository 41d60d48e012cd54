package autoroute

import (
	"context"
	"maps"
	"net/http"
)

// RequestInfo describes the action serving a request.
type RequestInfo struct {
	// OriginalURL is the request URI as sent by the client.
	OriginalURL string `json:"originalUrl"`

	// Action is the name of the action being called.
	Action string `json:"action"`

	// Route is the controller's base route.
	Route string `json:"route"`

	// Verb is the verb the action is bound to.
	Verb Verb `json:"verb"`
}

type infoKey struct{}

// InfoFromContext returns the RequestInfo of the request being served.
func InfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(infoKey{}).(RequestInfo)
	return info, ok
}

func withInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, infoKey{}, info)
}

type metaKey struct{}

// WithMeta returns r carrying value under key. Middleware uses it to expose
// request-scoped values, such as the authenticated user, to actions that
// allow-list key in their meta list.
func WithMeta(r *http.Request, key string, value any) *http.Request {
	prev, _ := r.Context().Value(metaKey{}).(map[string]any)
	next := make(map[string]any, len(prev)+1)
	maps.Copy(next, prev)
	next[key] = value
	return r.WithContext(context.WithValue(r.Context(), metaKey{}, next))
}

// MetaValue returns the value stored under key by WithMeta.
func MetaValue(ctx context.Context, key string) (any, bool) {
	m, _ := ctx.Value(metaKey{}).(map[string]any)
	v, ok := m[key]
	return v, ok
}

// Built-in meta fields, resolved from the request when no WithMeta value of
// the same name exists.
const (
	MetaMethod     = "method"
	MetaHost       = "host"
	MetaRemoteAddr = "remoteAddr"
	MetaRequestURI = "requestURI"
	MetaHeader     = "header"
	MetaUserAgent  = "userAgent"
)

// buildMeta returns the allow-listed fields of r. Names that resolve to
// nothing are left out.
func buildMeta(r *http.Request, metaList []string) Meta {
	meta := make(Meta, len(metaList))
	for _, name := range metaList {
		if v, ok := MetaValue(r.Context(), name); ok {
			meta[name] = v
			continue
		}
		switch name {
		case MetaMethod:
			meta[name] = r.Method
		case MetaHost:
			meta[name] = r.Host
		case MetaRemoteAddr:
			meta[name] = r.RemoteAddr
		case MetaRequestURI:
			meta[name] = r.RequestURI
		case MetaHeader:
			meta[name] = r.Header.Clone()
		case MetaUserAgent:
			meta[name] = r.UserAgent()
		}
	}
	return meta
}

// RequestEvent is passed to the request hook before an action runs.
type RequestEvent struct {
	OriginalURL string `json:"originalUrl"`
	Action      string `json:"action"`
	Params      Params `json:"params"`
	Meta        Meta   `json:"meta"`
}

// ResponseEvent is passed to the response hook after an action succeeds.
type ResponseEvent struct {
	RequestEvent
	Result any `json:"result"`
}

// RequestHook runs before every action. A non-nil error aborts the request
// and is passed to the ErrorHandler.
type RequestHook func(ctx context.Context, ev RequestEvent) error

// ResponseHook runs after every successful action, before the result is
// written. A non-nil error is passed to the ErrorHandler instead.
type ResponseHook func(ctx context.Context, ev ResponseEvent) error

func noopRequestHook(context.Context, RequestEvent) error { return nil }

func noopResponseHook(context.Context, ResponseEvent) error { return nil }
