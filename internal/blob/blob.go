// Package blob stores uploaded images and hands out references to them.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

var (
	ErrBlobNotFound = apperr.NotFound("file_not_found", "file not found")
	ErrEmptyUpload  = apperr.Validation("empty_file", "uploaded file is empty")
)

// Ref is what owning records keep about a stored file.
type Ref struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	UploadDate   time.Time `json:"upload_date"`
}

type Upload struct {
	OriginalName string
	ContentType  string
	Body         io.Reader
}

type Object struct {
	Ref
	Data []byte
}

type Store interface {
	Put(ctx context.Context, up Upload) (*Ref, error)
	Open(ctx context.Context, filename string) (*Object, error)
	Delete(ctx context.Context, filename string) error
}

// TooLarge is returned when an upload exceeds max bytes.
func TooLarge(max int64) error {
	return apperr.Validationf("file_too_large", "file exceeds the %d byte limit", max)
}

// read buffers up to max bytes of up and builds the reference for it.
func read(up Upload, max int64, now time.Time) (*Ref, []byte, error) {
	if up.Body == nil {
		return nil, nil, ErrEmptyUpload
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, max+1))
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindStorage, "upload_read_failed", "could not read upload", err)
	}
	if len(data) == 0 {
		return nil, nil, ErrEmptyUpload
	}
	if int64(len(data)) > max {
		return nil, nil, TooLarge(max)
	}

	detected := mimetype.Detect(data)
	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detected.String()
	}

	ext := strings.ToLower(filepath.Ext(up.OriginalName))
	if ext == "" {
		ext = detected.Extension()
	}

	return &Ref{
		Filename:     uuid.NewString() + ext,
		OriginalName: filepath.Base(up.OriginalName),
		MimeType:     contentType,
		Size:         int64(len(data)),
		UploadDate:   now.UTC(),
	}, data, nil
}

// DeleteQuietly removes ref if set, logging instead of failing.
func DeleteQuietly(ctx context.Context, store Store, ref *Ref, log *logger.Logger) {
	if ref == nil || ref.Filename == "" {
		return
	}
	if err := store.Delete(ctx, ref.Filename); err != nil {
		log.WithComponent("blob").WithError(err).WithField("filename", ref.Filename).
			Warn("failed to delete stored file")
	}
}

// MemoryStore keeps blobs in process memory. Used by tests and local tools.
type MemoryStore struct {
	mu      sync.Mutex
	max     int64
	objects map[string]*Object
	// FailPut and FailDelete force the matching call to fail.
	FailPut    bool
	FailDelete bool
}

func NewMemoryStore(max int64) *MemoryStore {
	return &MemoryStore{max: max, objects: make(map[string]*Object)}
}

func (m *MemoryStore) Put(_ context.Context, up Upload) (*Ref, error) {
	if m.FailPut {
		return nil, apperr.Wrap(apperr.KindStorage, "blob_write_failed", "could not store file", fmt.Errorf("memory store put disabled"))
	}
	ref, data, err := read(up, m.max, time.Now())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref.Filename] = &Object{Ref: *ref, Data: data}
	return ref, nil
}

func (m *MemoryStore) Open(_ context.Context, filename string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[filename]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return &Object{Ref: obj.Ref, Data: bytes.Clone(obj.Data)}, nil
}

func (m *MemoryStore) Delete(_ context.Context, filename string) error {
	if m.FailDelete {
		return fmt.Errorf("memory store delete disabled")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[filename]; !ok {
		return ErrBlobNotFound
	}
	delete(m.objects, filename)
	return nil
}

// Has reports whether filename is stored.
func (m *MemoryStore) Has(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[filename]
	return ok
}
