package autoroute

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/vango-dev/autoroute/pkg/upload"
)

// ActionHandler adapts an Action to http.Handler.
//
// For each request it merges the parameters, builds the meta object, runs
// the request hook, calls the action, runs the response hook and writes the
// result as JSON. Any failure along the way goes to the ErrorHandler
// unchanged, and nothing is written by the handler itself.
type ActionHandler struct {
	ActionRoute

	action   Action
	metaList []string
	opts     *options
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	info := RequestInfo{
		OriginalURL: originalURL(r),
		Action:      h.Action,
		Route:       h.Route,
		Verb:        h.Verb,
	}
	r = r.WithContext(withInfo(r.Context(), info))
	ctx := r.Context()

	params, files, err := h.collectParams(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		h.opts.errorHandler(w, r, err)
		return
	}

	if files != nil {
		if h.opts.uploadStore != nil {
			if err := upload.Persist(ctx, h.opts.uploadStore, files); err != nil {
				h.opts.errorHandler(w, r, err)
				return
			}
		}
		params[FilesParam] = files
	}

	ev := RequestEvent{
		OriginalURL: info.OriginalURL,
		Action:      h.Action,
		Params:      params,
		Meta:        buildMeta(r, h.metaList),
	}

	if err := h.opts.onRequest(ctx, ev); err != nil {
		h.opts.errorHandler(w, r, err)
		return
	}

	result, err := call(ctx, h.action, ev.Params, ev.Meta)
	if err != nil {
		h.opts.errorHandler(w, r, err)
		return
	}

	if err := h.opts.onResponse(ctx, ResponseEvent{RequestEvent: ev, Result: result}); err != nil {
		h.opts.errorHandler(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(result); err != nil {
		h.opts.errorHandler(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(buf.Bytes())
	}
}

// call runs action and turns a panic into a *PanicError.
func call(ctx context.Context, action Action, params Params, meta Meta) (result any, err error) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			result, err = nil, &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return action(ctx, params, meta)
}

func originalURL(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// describer is implemented by registered handlers so route tables can
// record which action serves a route.
type describer interface {
	ActionRoute() ActionRoute
}

// routeHandler carries the ActionRoute of an instrumented handler.
type routeHandler struct {
	http.Handler
	route ActionRoute
}

func (h routeHandler) ActionRoute() ActionRoute { return h.route }
