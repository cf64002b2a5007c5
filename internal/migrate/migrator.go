// Package migrate moves data from the legacy two-blob layout ("tasks" and
// "history" JSON arrays) into the repository, once.
package migrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nhle/checklist/internal/model"
)

// Status is the outcome of a migration run.
type Status int

const (
	// NoLegacyData means neither legacy key exists.
	NoLegacyData Status = iota
	// SkippedTargetNotEmpty means the repository already holds data; the
	// legacy keys are left in place.
	SkippedTargetNotEmpty
	// SkippedTargetUnreadable means the repository's saved state failed to
	// load, so it may hold data that Empty cannot see; the legacy keys are
	// left in place.
	SkippedTargetUnreadable
	// Migrated means the legacy data was imported, made durable, and the
	// legacy keys erased.
	Migrated
)

func (s Status) String() string {
	switch s {
	case NoLegacyData:
		return "no legacy data"
	case SkippedTargetNotEmpty:
		return "skipped, target not empty"
	case SkippedTargetUnreadable:
		return "skipped, saved data unreadable"
	case Migrated:
		return "migrated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result reports what Run did.
type Result struct {
	Status  Status
	Tasks   int
	History int
}

// Target is where migrated records go. *repository.Repository implements it.
type Target interface {
	Empty(ctx context.Context) bool
	LoadErr() error
	Import(ctx context.Context, tasks []model.Task, history []model.HistoryEntry) error
	Flush(ctx context.Context) error
}

// Migrator performs the one-time legacy import.
type Migrator struct {
	src    Source
	target Target
	now    func() time.Time
}

// New returns a Migrator reading from src and writing to target.
func New(src Source, target Target) *Migrator {
	return &Migrator{src: src, target: target, now: time.Now}
}

// WithClock sets the time used for records whose creation time cannot be
// recovered from their id.
func (m *Migrator) WithClock(now func() time.Time) *Migrator {
	m.now = now
	return m
}

// Run imports the legacy data if there is any and the target is empty.
// The legacy keys are erased only after the imported records have been
// flushed. On any error the legacy keys are kept and the error is
// returned; a failed decode leaves the target untouched.
func (m *Migrator) Run(ctx context.Context) (Result, error) {
	rawTasks, hasTasks, err := m.src.Read(KeyTasks)
	if err != nil {
		log.Printf("migrate: %v", err)
		return Result{}, err
	}
	rawHistory, hasHistory, err := m.src.Read(KeyHistory)
	if err != nil {
		log.Printf("migrate: %v", err)
		return Result{}, err
	}
	if !hasTasks && !hasHistory {
		return Result{Status: NoLegacyData}, nil
	}

	if err := m.target.LoadErr(); err != nil {
		log.Printf("migrate: saved data failed to load, keeping legacy keys: %v", err)
		return Result{Status: SkippedTargetUnreadable}, nil
	}
	if !m.target.Empty(ctx) {
		log.Printf("migrate: repository already has data, keeping legacy keys")
		return Result{Status: SkippedTargetNotEmpty}, nil
	}

	tasks, history, err := m.convert(rawTasks, rawHistory)
	if err != nil {
		log.Printf("migrate: converting legacy data: %v", err)
		return Result{}, fmt.Errorf("converting legacy data: %w", err)
	}

	if err := m.target.Import(ctx, tasks, history); err != nil {
		log.Printf("migrate: importing legacy data: %v", err)
		return Result{}, fmt.Errorf("importing legacy data: %w", err)
	}
	if err := m.target.Flush(ctx); err != nil {
		log.Printf("migrate: flushing imported data, keeping legacy keys: %v", err)
		return Result{}, fmt.Errorf("flushing imported data: %w", err)
	}

	res := Result{Status: Migrated, Tasks: len(tasks), History: len(history)}
	for _, key := range []string{KeyTasks, KeyHistory} {
		if err := m.src.Erase(key); err != nil {
			// The data is durable in the target; a later run skips because
			// the target is no longer empty.
			log.Printf("migrate: %v", err)
		}
	}
	log.Printf("migrate: imported %d tasks and %d history entries", res.Tasks, res.History)
	return res, nil
}

func (m *Migrator) convert(rawTasks, rawHistory []byte) ([]model.Task, []model.HistoryEntry, error) {
	legacyTasks, err := decode[LegacyTask](KeyTasks, rawTasks)
	if err != nil {
		return nil, nil, err
	}
	legacyHistory, err := decode[LegacyHistoryEntry](KeyHistory, rawHistory)
	if err != nil {
		return nil, nil, err
	}

	now := m.now()
	ids := newIDSet()

	tasks := make([]model.Task, 0, len(legacyTasks))
	for _, lt := range legacyTasks {
		t, err := convertTask(lt, now, ids)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, t)
	}

	history := make([]model.HistoryEntry, 0, len(legacyHistory))
	for _, lh := range legacyHistory {
		h, err := convertHistory(lh, ids)
		if err != nil {
			return nil, nil, err
		}
		history = append(history, h)
	}

	return tasks, history, nil
}

func convertTask(lt LegacyTask, now time.Time, ids *idSet) (model.Task, error) {
	id, err := legacyID("task id", lt.ID)
	if err != nil {
		return model.Task{}, err
	}
	due, err := model.ParseDue(lt.DueDate)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", id, err)
	}

	t := model.Task{
		ID:        ids.record(id),
		Title:     lt.Title,
		DueDate:   due,
		Note:      noteText(lt.Note),
		CreatedAt: createdFromID(id, now),
	}
	for i, ls := range lt.Subtasks {
		sid, err := legacyID("subtask id", ls.ID)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", id, err)
		}
		t.Subtasks = append(t.Subtasks, model.Subtask{
			ID:        ids.subtask(sid),
			TaskID:    t.ID,
			Text:      ls.Text,
			Note:      noteText(ls.Note),
			Completed: ls.Completed,
			SortOrder: i,
		})
	}
	return t, nil
}

func convertHistory(lh LegacyHistoryEntry, ids *idSet) (model.HistoryEntry, error) {
	id, err := legacyID("history id", lh.ID)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	due, err := model.ParseDue(lh.DueDate)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("history entry %s: %w", id, err)
	}
	completed, err := parseCompleted(lh.CompletedDate)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("history entry %s: %w", id, err)
	}

	h := model.HistoryEntry{
		ID:          ids.record(id),
		Title:       lh.Title,
		DueDate:     due,
		Note:        noteText(lh.Note),
		CompletedAt: completed,
	}
	for i, ls := range lh.Subtasks {
		sid, err := legacyID("subtask id", ls.ID)
		if err != nil {
			return model.HistoryEntry{}, fmt.Errorf("history entry %s: %w", id, err)
		}
		h.Subtasks = append(h.Subtasks, model.HistorySubtask{
			ID:        ids.subtask(sid),
			HistoryID: h.ID,
			Text:      ls.Text,
			Note:      noteText(ls.Note),
			Completed: ls.Completed,
			SortOrder: i,
		})
	}
	return h, nil
}

// idSet hands out unique ids. Legacy ids were millisecond timestamps and
// can collide; a repeat gets a "-2", "-3", ... suffix.
type idSet struct {
	records  map[string]bool
	subtasks map[string]bool
}

func newIDSet() *idSet {
	return &idSet{records: make(map[string]bool), subtasks: make(map[string]bool)}
}

func (s *idSet) record(id string) string  { return unique(s.records, id) }
func (s *idSet) subtask(id string) string { return unique(s.subtasks, id) }

func unique(seen map[string]bool, id string) string {
	out := id
	for n := 2; seen[out]; n++ {
		out = fmt.Sprintf("%s-%d", id, n)
	}
	seen[out] = true
	return out
}
