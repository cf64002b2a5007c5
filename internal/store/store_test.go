package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nhle/checklist/internal/model"
)

// memBackend is an in-memory Backend that can be told to fail.
type memBackend struct {
	mu       sync.Mutex
	snap     Snapshot
	saves    int
	loadErr  error
	saveErr  error
	closed   bool
	savedSig chan struct{}
}

func newMemBackend() *memBackend {
	return &memBackend{savedSig: make(chan struct{}, 16)}
}

func (m *memBackend) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Snapshot{}, m.loadErr
	}
	return m.snap, nil
}

func (m *memBackend) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap
	m.saves++
	select {
	case m.savedSig <- struct{}{}:
	default:
	}
	return nil
}

func (m *memBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memBackend) setSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *memBackend) saved() (Snapshot, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.saves
}

func openStore(t *testing.T, b Backend, delay time.Duration) *Store {
	t.Helper()
	s, err := Open(context.Background(), b, Options{FlushDelay: delay})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func putTaskWithSubtask(t *testing.T, s *Store, taskID, subID string) {
	t.Helper()
	err := s.Update(func(tx *Tx) error {
		if err := tx.PutTask(model.Task{ID: taskID, Title: "t " + taskID}); err != nil {
			return err
		}
		return tx.PutSubtask(model.Subtask{ID: subID, TaskID: taskID, Text: "s"})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := openStore(t, newMemBackend(), 0)
	putTaskWithSubtask(t, s, "t1", "s1")

	boom := errors.New("boom")
	err := s.Update(func(tx *Tx) error {
		if err := tx.DeleteTask("t1"); err != nil {
			return err
		}
		if err := tx.PutHistory(model.HistoryEntry{ID: "t1", Title: "t t1"}); err != nil {
			return err
		}
		if err := tx.PutTask(model.Task{ID: "t2", Title: "other"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = s.View(func(tx *Tx) error {
		if _, ok := tx.Task("t1"); !ok {
			t.Fatalf("task t1 should be restored")
		}
		if _, ok := tx.Subtask("s1"); !ok {
			t.Fatalf("subtask s1 should be restored")
		}
		if _, ok := tx.History("t1"); ok {
			t.Fatalf("history t1 should not exist")
		}
		if _, ok := tx.Task("t2"); ok {
			t.Fatalf("task t2 should not exist")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestDeleteTaskCascadesAndIsIdempotent(t *testing.T) {
	s := openStore(t, newMemBackend(), 0)
	putTaskWithSubtask(t, s, "t1", "s1")

	for i := 0; i < 2; i++ {
		if err := s.Update(func(tx *Tx) error { return tx.DeleteTask("t1") }); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}

	if !s.Empty() {
		t.Fatalf("store should be empty after cascade delete")
	}
}

func TestPutSubtaskRequiresLiveTask(t *testing.T) {
	s := openStore(t, newMemBackend(), 0)

	err := s.Update(func(tx *Tx) error {
		return tx.PutSubtask(model.Subtask{ID: "s1", TaskID: "missing", Text: "x"})
	})
	if err == nil {
		t.Fatalf("expected error for orphan subtask")
	}
	if !s.Empty() {
		t.Fatalf("orphan subtask must not be stored")
	}
}

func TestTaskAndHistoryIDsAreExclusive(t *testing.T) {
	s := openStore(t, newMemBackend(), 0)
	putTaskWithSubtask(t, s, "t1", "s1")

	err := s.Update(func(tx *Tx) error {
		return tx.PutHistory(model.HistoryEntry{ID: "t1"})
	})
	if err == nil {
		t.Fatalf("expected error when history id is a live task")
	}
}

func TestViewRejectsWrites(t *testing.T) {
	s := openStore(t, newMemBackend(), 0)

	err := s.View(func(tx *Tx) error {
		return tx.PutTask(model.Task{ID: "t1"})
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestSynchronousFlush(t *testing.T) {
	b := newMemBackend()
	s := openStore(t, b, 0)
	putTaskWithSubtask(t, s, "t1", "s1")

	snap, saves := b.saved()
	if saves != 1 {
		t.Fatalf("expected 1 save, got %d", saves)
	}
	if len(snap.Tasks) != 1 || len(snap.Subtasks) != 1 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	if s.Pending() {
		t.Fatalf("store should not be pending after synchronous flush")
	}
}

func TestDebouncedFlushCoalesces(t *testing.T) {
	b := newMemBackend()
	s := openStore(t, b, 20*time.Millisecond)

	for _, id := range []string{"a", "b", "c"} {
		id := id
		if err := s.Update(func(tx *Tx) error {
			return tx.PutTask(model.Task{ID: id, Title: id})
		}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if !s.Pending() {
		t.Fatalf("expected pending mutations before the debounce fires")
	}

	select {
	case <-b.savedSig:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced flush never ran")
	}

	snap, saves := b.saved()
	if saves != 1 {
		t.Fatalf("expected a single coalesced save, got %d", saves)
	}
	if len(snap.Tasks) != 3 {
		t.Fatalf("expected 3 tasks saved, got %d", len(snap.Tasks))
	}
}

func TestFlushForcesPendingWrite(t *testing.T) {
	b := newMemBackend()
	s := openStore(t, b, time.Hour)
	putTaskWithSubtask(t, s, "t1", "s1")

	if _, saves := b.saved(); saves != 0 {
		t.Fatalf("expected no save before Flush, got %d", saves)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, saves := b.saved(); saves != 1 {
		t.Fatalf("expected 1 save after Flush, got %d", saves)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if _, saves := b.saved(); saves != 1 {
		t.Fatalf("flush with nothing pending should not save, got %d saves", saves)
	}
}

func TestFlushErrorIsStickyUntilSuccess(t *testing.T) {
	b := newMemBackend()
	var hooked []error
	s, err := Open(context.Background(), b, Options{
		FlushDelay:   time.Hour,
		OnFlushError: func(err error) { hooked = append(hooked, err) },
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	b.setSaveErr(errors.New("disk gone"))
	putTaskWithSubtask(t, s, "t1", "s1")

	err = s.Flush(context.Background())
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(hooked) != 1 {
		t.Fatalf("expected OnFlushError to fire once, got %d", len(hooked))
	}
	if s.Err() == nil || !s.Pending() {
		t.Fatalf("failed flush should leave a sticky error and pending state")
	}

	// The next write is applied in memory but reports the sticky error.
	err = s.Update(func(tx *Tx) error { return tx.PutTask(model.Task{ID: "t2", Title: "x"}) })
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected sticky storage error from Update, got %v", err)
	}
	_ = s.View(func(tx *Tx) error {
		if _, ok := tx.Task("t2"); !ok {
			t.Fatalf("t2 should be applied in memory")
		}
		return nil
	})

	b.setSaveErr(nil)
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}
	if s.Err() != nil {
		t.Fatalf("sticky error should clear after a successful flush")
	}
	if snap, _ := b.saved(); len(snap.Tasks) != 2 {
		t.Fatalf("expected both tasks durable, got %d", len(snap.Tasks))
	}
}

func TestCorruptLoadStartsEmpty(t *testing.T) {
	b := newMemBackend()
	b.loadErr = &model.StorageError{Op: "decoding state", Kind: model.StorageCorrupt, Err: errors.New("bad json")}

	s := openStore(t, b, 0)
	if !s.Empty() {
		t.Fatalf("store should start empty after a failed load")
	}
	var se *model.StorageError
	if !errors.As(s.LoadErr(), &se) || se.Kind != model.StorageCorrupt {
		t.Fatalf("expected corrupt LoadErr, got %v", s.LoadErr())
	}
}

// preservingBackend is a memBackend that can preserve its saved state.
type preservingBackend struct {
	*memBackend
	preserves   int
	preserveErr error
}

func (p *preservingBackend) Preserve(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.preserveErr != nil {
		return p.preserveErr
	}
	p.preserves++
	return nil
}

func TestFailedLoadIsNeverOverwrittenWithoutPreserve(t *testing.T) {
	b := newMemBackend()
	b.loadErr = errors.New("unreadable row")

	s := openStore(t, b, 0)
	err := s.Update(func(tx *Tx) error { return tx.PutTask(model.Task{ID: "t1", Title: "x"}) })
	var se *model.StorageError
	if !errors.As(err, &se) || se.Kind != model.StorageCorrupt {
		t.Fatalf("expected corrupt storage error, got %v", err)
	}
	if _, saves := b.saved(); saves != 0 {
		t.Fatalf("backend without Preserve must not be saved over, got %d saves", saves)
	}
	_ = s.View(func(tx *Tx) error {
		if _, ok := tx.Task("t1"); !ok {
			t.Fatalf("t1 should be applied in memory")
		}
		return nil
	})
}

func TestFailedLoadPreservesOnceBeforeSaving(t *testing.T) {
	b := &preservingBackend{memBackend: newMemBackend(), preserveErr: errors.New("read-only")}
	b.loadErr = errors.New("unreadable row")
	s := openStore(t, b, 0)

	err := s.Update(func(tx *Tx) error { return tx.PutTask(model.Task{ID: "t1", Title: "x"}) })
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected storage error while preserve fails, got %v", err)
	}
	if _, saves := b.saved(); saves != 0 {
		t.Fatalf("failed preserve must block the save, got %d saves", saves)
	}

	b.mu.Lock()
	b.preserveErr = nil
	b.mu.Unlock()
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush after preserve recovers: %v", err)
	}
	putTaskWithSubtask(t, s, "t2", "s2")

	if _, saves := b.saved(); saves != 2 {
		t.Fatalf("expected 2 saves, got %d", saves)
	}
	if b.preserves != 1 {
		t.Fatalf("expected exactly one preserve, got %d", b.preserves)
	}
}

func TestOpenDropsOrphans(t *testing.T) {
	b := newMemBackend()
	b.snap = Snapshot{
		Tasks:           []model.Task{{ID: "t1", Title: "keep"}},
		Subtasks:        []model.Subtask{{ID: "s1", TaskID: "t1"}, {ID: "s2", TaskID: "gone"}},
		HistorySubtasks: []model.HistorySubtask{{ID: "h1", HistoryID: "gone"}},
	}

	s := openStore(t, b, 0)
	_ = s.View(func(tx *Tx) error {
		if _, ok := tx.Subtask("s2"); ok {
			t.Fatalf("orphan subtask should be dropped")
		}
		if got := len(tx.Subtasks("t1")); got != 1 {
			t.Fatalf("expected 1 subtask for t1, got %d", got)
		}
		return nil
	})
}

func TestCloseFlushesAndRejectsUpdates(t *testing.T) {
	b := newMemBackend()
	s := openStore(t, b, time.Hour)
	putTaskWithSubtask(t, s, "t1", "s1")

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, saves := b.saved(); saves != 1 {
		t.Fatalf("Close should flush pending writes, got %d saves", saves)
	}
	if !b.closed {
		t.Fatalf("backend should be closed")
	}

	err := s.Update(func(tx *Tx) error { return tx.DeleteTask("t1") })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSubtasksOrdered(t *testing.T) {
	s := openStore(t, newMemBackend(), 0)
	err := s.Update(func(tx *Tx) error {
		if err := tx.PutTask(model.Task{ID: "t1"}); err != nil {
			return err
		}
		for _, st := range []model.Subtask{
			{ID: "c", TaskID: "t1", SortOrder: 2},
			{ID: "a", TaskID: "t1", SortOrder: 1},
			{ID: "b", TaskID: "t1", SortOrder: 0},
		} {
			if err := tx.PutSubtask(st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	_ = s.View(func(tx *Tx) error {
		subs := tx.Subtasks("t1")
		if len(subs) != 3 || subs[0].ID != "b" || subs[1].ID != "a" || subs[2].ID != "c" {
			t.Fatalf("unexpected order: %#v", subs)
		}
		return nil
	})
}
