package migrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"github.com/nhle/checklist/internal/model"
)

// Keys of the legacy layout.
const (
	KeyTasks   = "tasks"
	KeyHistory = "history"
)

// LegacyTask is a task as stored under the "tasks" key. Ids were
// millisecond timestamps, sometimes with a fractional part.
type LegacyTask struct {
	ID       json.Number     `json:"id"`
	Title    string          `json:"title"`
	DueDate  string          `json:"dueDate"`
	Note     *string         `json:"note"`
	Subtasks []LegacySubtask `json:"subtasks"`
}

// LegacySubtask is a subtask embedded in a legacy task or history entry.
type LegacySubtask struct {
	ID        json.Number `json:"id"`
	Text      string      `json:"text"`
	Note      *string     `json:"note"`
	Completed bool        `json:"completed"`
}

// LegacyHistoryEntry is a completed task as stored under the "history"
// key.
type LegacyHistoryEntry struct {
	ID            json.Number     `json:"id"`
	Title         string          `json:"title"`
	DueDate       string          `json:"dueDate"`
	Note          *string         `json:"note"`
	CompletedDate string          `json:"completedDate"`
	Subtasks      []LegacySubtask `json:"subtasks"`
}

// Source is the legacy key-value store.
type Source interface {
	// Read returns the value under key. ok is false when the key is absent.
	Read(key string) (val []byte, ok bool, err error)
	Erase(key string) error
}

// DiskvSource reads legacy blobs from a diskv directory, one file per key.
type DiskvSource struct {
	d *diskv.Diskv
}

// NewDiskvSource returns a Source rooted at dir.
func NewDiskvSource(dir string) *DiskvSource {
	return &DiskvSource{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 0,
	})}
}

func (s *DiskvSource) Read(key string) ([]byte, bool, error) {
	if !s.d.Has(key) {
		return nil, false, nil
	}
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading legacy %s: %w", key, err)
	}
	return val, true, nil
}

func (s *DiskvSource) Erase(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("erasing legacy %s: %w", key, err)
	}
	return nil
}

// Write stores a legacy blob.
func (s *DiskvSource) Write(key string, val []byte) error {
	if err := s.d.Write(key, val); err != nil {
		return fmt.Errorf("writing legacy %s: %w", key, err)
	}
	return nil
}

// decode parses a legacy JSON array keeping numeric ids as written.
func decode[T any](key string, raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out []T
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding legacy %s: %w", key, err)
	}
	return out, nil
}

// legacyID returns the id text. Numbers are kept verbatim; a missing id
// is a validation error.
func legacyID(field string, n json.Number) (string, error) {
	id := strings.TrimSpace(n.String())
	if id == "" {
		return "", &model.ValidationError{Field: field, Reason: "missing id"}
	}
	return id, nil
}

// createdFromID recovers the creation time from a millisecond-timestamp
// id, or returns fallback.
func createdFromID(id string, fallback time.Time) time.Time {
	f, err := strconv.ParseFloat(id, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return time.UnixMilli(int64(f))
}

func noteText(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}

// parseCompleted parses the ISO timestamp written by the legacy app.
func parseCompleted(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &model.ValidationError{
			Field:  "completed date",
			Reason: fmt.Sprintf("cannot parse %q", s),
		}
	}
	return t, nil
}
