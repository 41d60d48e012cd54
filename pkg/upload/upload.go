package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"
)

// ErrNotFound is returned when a stored file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrInvalidID is returned when an ID could not have been produced by a store.
var ErrInvalidID = errors.New("upload: invalid file id")

// Store is the interface for upload storage backends.
type Store interface {
	// Save stores the uploaded file and returns its ID.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (id string, err error)

	// Claim retrieves a stored file. The file is removed once its Reader is
	// closed.
	Claim(ctx context.Context, id string) (*File, error)

	// Cleanup removes files older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File represents an uploaded file.
type File struct {
	// ID is set once the file has been saved to a Store.
	ID string `json:"id,omitempty"`

	// Field is the multipart form field the file arrived in.
	Field string `json:"field,omitempty"`

	// Filename is the original filename from the client.
	Filename string `json:"filename"`

	// ContentType is the MIME type declared by the client.
	ContentType string `json:"contentType,omitempty"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Path is the local filesystem path (for DiskStore).
	Path string `json:"path,omitempty"`

	// URL is the remote URL (for S3 storage).
	URL string `json:"url,omitempty"`

	// Reader provides access to the file contents of a claimed file.
	Reader io.ReadCloser `json:"-"`

	header *multipart.FileHeader
}

// Open returns a reader for the file contents. Claimed files return their
// Reader; files taken from a request open the multipart part.
func (f *File) Open() (io.ReadCloser, error) {
	if f.Reader != nil {
		return f.Reader, nil
	}
	if f.header != nil {
		return f.header.Open()
	}
	return nil, ErrNotFound
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// Files groups uploaded files by form field.
type Files map[string][]*File

// First returns the first file uploaded under field, or nil.
func (fs Files) First(field string) *File {
	if list := fs[field]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Len returns the number of files across all fields.
func (fs Files) Len() int {
	n := 0
	for _, list := range fs {
		n += len(list)
	}
	return n
}

// FromMultipart collects the files of a parsed multipart form. It returns
// nil when the form carries no files.
func FromMultipart(form *multipart.Form) Files {
	if form == nil || len(form.File) == 0 {
		return nil
	}
	files := make(Files, len(form.File))
	for field, headers := range form.File {
		for _, h := range headers {
			files[field] = append(files[field], &File{
				Field:       field,
				Filename:    h.Filename,
				ContentType: h.Header.Get("Content-Type"),
				Size:        h.Size,
				header:      h,
			})
		}
	}
	return files
}

// Persist saves every file in files to store and records the resulting ID
// on each file. It stops at the first failure.
func Persist(ctx context.Context, store Store, files Files) error {
	for field, list := range files {
		for _, f := range list {
			if f.ID != "" {
				continue
			}
			if err := persistOne(ctx, store, f); err != nil {
				return fmt.Errorf("upload: persist %s/%s: %w", field, f.Filename, err)
			}
		}
	}
	return nil
}

func persistOne(ctx context.Context, store Store, f *File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	id, err := store.Save(ctx, f.Filename, f.ContentType, f.Size, rc)
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}
