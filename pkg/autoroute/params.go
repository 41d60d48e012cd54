package autoroute

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-dev/autoroute/pkg/upload"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// collectParams merges query, body and path parameters, in that order of
// precedence from lowest to highest. Uploaded files are returned separately
// when the upload field is present.
func (h *ActionHandler) collectParams(w http.ResponseWriter, r *http.Request) (Params, upload.Files, error) {
	params := make(Params)
	mergeValues(params, r.URL.Query())

	files, err := h.mergeBody(params, w, r)
	if err != nil {
		return nil, nil, err
	}

	for k, v := range PathParams(r.Context()) {
		params[k] = v
	}
	return params, files, nil
}

func (h *ActionHandler) mergeBody(params Params, w http.ResponseWriter, r *http.Request) (upload.Files, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if h.opts.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxBodySize)
	}

	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, Errorf(http.StatusUnsupportedMediaType, "malformed content type %q", ct)
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return nil, decodeJSONBody(params, r.Body)

	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		mergeValues(params, r.PostForm)
		return nil, nil

	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}
		mergeValues(params, r.MultipartForm.Value)
		if len(r.MultipartForm.File[h.opts.uploadField]) == 0 {
			return nil, nil
		}
		return upload.FromMultipart(r.MultipartForm), nil
	}

	return nil, nil
}

func decodeJSONBody(params Params, body io.Reader) error {
	var decoded map[string]any
	err := json.NewDecoder(body).Decode(&decoded)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return bodyError(err)
	}
	for k, v := range decoded {
		params[k] = v
	}
	return nil
}

func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return NewStatusError(http.StatusRequestEntityTooLarge, err)
	}
	return NewStatusError(http.StatusBadRequest, err)
}

// mergeValues copies values into params. Keys with one value become
// strings, keys with several become []string.
func mergeValues(params Params, values url.Values) {
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			params[k] = vs[0]
		default:
			params[k] = append([]string(nil), vs...)
		}
	}
}
