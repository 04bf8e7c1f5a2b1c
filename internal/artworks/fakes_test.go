package artworks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"visioncloud-backend/internal/shared/telemetry"
)

// memBlobs is an in-memory object store with injectable failures.
type memBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	failPut    map[string]bool
	failDelete map[string]bool
	deleted    []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{
		objects:    make(map[string][]byte),
		types:      make(map[string]string),
		failPut:    make(map[string]bool),
		failDelete: make(map[string]bool),
	}
}

func (m *memBlobs) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut[key] {
		return "", errors.New("put refused")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return m.URL(key), nil
}

func (m *memBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete[key] {
		return errors.New("delete refused")
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memBlobs) URL(key string) string {
	return "https://cdn.test/" + key
}

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memBlobs) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// failingRecords wraps a MemoryRepo and refuses inserts.
type failingRecords struct {
	*MemoryRepo
}

func (f failingRecords) Create(ctx context.Context, a Artwork) error {
	return errors.New("insert refused")
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + string(rune('0'+n))
	}
}

func newTestRepository(records Repo, blobs *memBlobs) *Repository {
	r := NewRepository(records, blobs)
	r.Now = fixedClock
	r.NewID = sequentialIDs("art")
	return r
}

// captureLogs redirects telemetry output for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	t.Cleanup(restore)
	return &buf
}

// logLines decodes captured lines whose msg equals msg.
func logLines(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if payload["msg"] == msg {
			out = append(out, payload)
		}
	}
	return out
}
