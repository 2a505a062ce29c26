// Package inbox persists accepted payloads as individual capture files.
package inbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	filePrefix = "capture-"
	fileSuffix = ".json"
	stampSize  = len("20060102T150405000Z")
)

// File describes one capture file in the inbox.
type File struct {
	Name       string
	Path       string
	CapturedAt time.Time
	Size       int64
}

// Writer creates capture files in a single inbox directory.
type Writer struct {
	dir   string
	now   func() time.Time
	token func() string
}

// Option customizes a Writer.
type Option func(*Writer)

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithToken overrides the unique filename token source.
func WithToken(token func() string) Option {
	return func(w *Writer) {
		if token != nil {
			w.token = token
		}
	}
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir: dir,
		now: time.Now,
		token: func() string {
			id := uuid.New()
			return strings.ReplaceAll(id.String(), "-", "")
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the inbox directory.
func (w *Writer) Dir() string {
	return w.dir
}

// FileName renders the capture file name for a timestamp and token.
func FileName(at time.Time, token string) string {
	return filePrefix + formatStamp(at) + "-" + token + fileSuffix
}

func formatStamp(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s%03dZ", at.Format("20060102T150405"), at.Nanosecond()/int(time.Millisecond))
}

// Write stores payload verbatim in a new capture file. The file is created
// exclusively so an existing name is never overwritten, and it is synced to
// disk before Write returns. A partially written file is removed.
func (w *Writer) Write(payload []byte) (File, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return File{}, fmt.Errorf("create inbox: %w", err)
	}
	// Ledger timestamps carry 100ns ticks.
	at := w.now().UTC().Truncate(100 * time.Nanosecond)
	name := FileName(at, w.token())
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return File{}, fmt.Errorf("create capture file: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return File{}, fmt.Errorf("write capture file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return File{}, fmt.Errorf("sync capture file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return File{}, fmt.Errorf("close capture file: %w", err)
	}
	return File{Name: name, Path: path, CapturedAt: at, Size: int64(len(payload))}, nil
}

// ParseName extracts the capture timestamp from a capture file name.
func ParseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	rest := strings.TrimPrefix(name, filePrefix)
	if len(rest) < stampSize+1 || rest[stampSize] != '-' {
		return time.Time{}, false
	}
	stamp := rest[:stampSize]
	at, err := time.Parse("20060102T150405", stamp[:15])
	if err != nil {
		return time.Time{}, false
	}
	if stamp[18] != 'Z' {
		return time.Time{}, false
	}
	millis := 0
	for _, c := range stamp[15:18] {
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
		millis = millis*10 + int(c-'0')
	}
	return at.Add(time.Duration(millis) * time.Millisecond).UTC(), true
}

// List returns the capture files in dir, newest first. A missing directory
// yields an empty list.
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		at, ok := ParseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name:       entry.Name(),
			Path:       filepath.Join(dir, entry.Name()),
			CapturedAt: at,
			Size:       info.Size(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].CapturedAt.Equal(files[j].CapturedAt) {
			return files[i].Name > files[j].Name
		}
		return files[i].CapturedAt.After(files[j].CapturedAt)
	})
	return files, nil
}
