package autoroute

import (
	"log/slog"
	"net/http"

	"github.com/vango-dev/autoroute/pkg/upload"
)

// DefaultExtensions lists the recognized controller extensions, most
// preferred first.
var DefaultExtensions = []string{".go", ".so"}

// DefaultPattern matches every file; the extension list decides which files
// are controllers.
const DefaultPattern = "**/*"

// DefaultUploadField is the multipart field whose presence makes uploaded
// files available as params["files"].
const DefaultUploadField = "data"

// FilesParam is the params key uploaded files are stored under.
const FilesParam = "files"

// DefaultMaxBodySize bounds request bodies unless WithMaxBodySize is used.
const DefaultMaxBodySize = 10 << 20

// ActionRoute identifies an action registered on a route.
type ActionRoute struct {
	Route  string         `json:"route"`
	Action string         `json:"action"`
	Verb   Verb           `json:"verb"`
	File   ControllerFile `json:"file"`
}

// Instrument wraps the handler of an action. Instruments see the route
// identity once at build time, so they can pre-compute labels.
type Instrument func(route ActionRoute, next http.Handler) http.Handler

// Option configures an Autoroute.
type Option func(*options)

type options struct {
	pattern      string
	ignore       []string
	exts         []string
	loader       Loader
	onRequest    RequestHook
	onResponse   ResponseHook
	errorHandler ErrorHandler
	instruments  []Instrument
	logger       *slog.Logger
	uploadField  string
	uploadStore  upload.Store
	maxBodySize  int64
}

func defaultOptions() options {
	return options{
		pattern:     DefaultPattern,
		exts:        DefaultExtensions,
		onRequest:   noopRequestHook,
		onResponse:  noopResponseHook,
		uploadField: DefaultUploadField,
		maxBodySize: DefaultMaxBodySize,
	}
}

// WithPattern sets the doublestar glob, relative to the base directory, that
// controller files must match.
func WithPattern(pattern string) Option {
	return func(o *options) { o.pattern = pattern }
}

// WithIgnore adds globs for files that are never controllers.
func WithIgnore(patterns ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, patterns...) }
}

// WithExtensions sets the recognized extensions, most preferred first.
func WithExtensions(exts ...string) Option {
	return func(o *options) { o.exts = append([]string(nil), exts...) }
}

// WithLoader sets how controller files are turned into Controllers.
func WithLoader(l Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithOnRequest sets the hook called before each action.
func WithOnRequest(h RequestHook) Option {
	return func(o *options) {
		if h != nil {
			o.onRequest = h
		}
	}
}

// WithOnResponse sets the hook called after each successful action.
func WithOnResponse(h ResponseHook) Option {
	return func(o *options) {
		if h != nil {
			o.onResponse = h
		}
	}
}

// WithErrorHandler sets the handler for failed requests.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.errorHandler = h }
}

// WithInstrument adds an Instrument. The first one added is outermost.
func WithInstrument(in Instrument) Option {
	return func(o *options) {
		if in != nil {
			o.instruments = append(o.instruments, in)
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUploadField sets the multipart field that triggers params["files"].
func WithUploadField(field string) Option {
	return func(o *options) { o.uploadField = field }
}

// WithUploadStore saves uploaded files to s before the action runs.
func WithUploadStore(s upload.Store) Option {
	return func(o *options) { o.uploadStore = s }
}

// WithMaxBodySize bounds request bodies to n bytes. Zero or less disables
// the limit.
func WithMaxBodySize(n int64) Option {
	return func(o *options) { o.maxBodySize = n }
}
