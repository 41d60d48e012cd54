package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data        []byte
	contentType string
	meta        map[string]string
	modified    time.Time
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]*fakeObject
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]*fakeObject)}
}

var errNoSuchKey = errors.New("no such key")

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = &fakeObject{
		data:        data,
		contentType: aws.ToString(in.ContentType),
		meta:        in.Metadata,
		modified:    time.Now(),
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) get(key *string) (*fakeObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(key)]
	if !ok {
		return nil, errNoSuchKey
	}
	return obj, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	obj, err := f.get(in.Key)
	if err != nil {
		return nil, err
	}
	out := &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		Metadata:      obj.meta,
	}
	if obj.contentType != "" {
		out.ContentType = aws.String(obj.contentType)
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	obj, err := f.get(in.Key)
	if err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for key, obj := range f.objects {
		if !strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func TestS3Store_SaveClaimDeletesOnClose(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "uploads/", 0)

	id, err := store.Save(ctx, "photo.png", "image/png", 4, strings.NewReader("\x89PNG"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := fake.objects["uploads/"+id]; !ok {
		t.Fatalf("expected object under prefix, have %v", fake.objects)
	}

	f, err := store.Claim(ctx, id)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if f.Filename != "photo.png" || f.ContentType != "image/png" || f.Size != 4 {
		t.Errorf("unexpected file %+v", f)
	}
	if f.URL != "" {
		t.Errorf("fake client cannot presign, URL = %q", f.URL)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(fake.objects) != 0 {
		t.Errorf("expected object to be deleted on close, have %d", len(fake.objects))
	}
}

func TestS3Store_TooLarge(t *testing.T) {
	store := NewS3Store(newFakeS3(), "bucket", "", 2)
	_, err := store.Save(context.Background(), "a", "", 1, strings.NewReader("abc"))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}

func TestS3Store_ClaimMissing(t *testing.T) {
	store := NewS3Store(newFakeS3(), "bucket", "", 0)
	_, err := store.Claim(context.Background(), "0b7a2c4e-8f41-4c3b-9d2e-5a6f7b8c9d0e")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestS3Store_Cleanup(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "tmp/", 0)

	oldID, _ := store.Save(ctx, "old", "", 1, strings.NewReader("o"))
	newID, _ := store.Save(ctx, "new", "", 1, strings.NewReader("n"))
	fake.objects["tmp/"+oldID].modified = time.Now().Add(-2 * time.Hour)
	fake.objects["other/keep"] = &fakeObject{modified: time.Now().Add(-2 * time.Hour)}

	if err := store.Cleanup(ctx, time.Hour); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, ok := fake.objects["tmp/"+oldID]; ok {
		t.Error("expected old object to be removed")
	}
	if _, ok := fake.objects["tmp/"+newID]; !ok {
		t.Error("expected new object to be kept")
	}
	if _, ok := fake.objects["other/keep"]; !ok {
		t.Error("expected object outside prefix to be kept")
	}
}
