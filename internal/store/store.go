package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nhle/checklist/internal/model"
)

// DefaultFlushDelay is the debounce window between a mutation and the
// durable write that follows it.
const DefaultFlushDelay = 300 * time.Millisecond

var (
	// ErrClosed is returned by Update after Close.
	ErrClosed = errors.New("store is closed")

	// ErrReadOnly is returned by Tx mutators called inside View.
	ErrReadOnly = errors.New("write in read-only transaction")
)

// Options configures a Store.
type Options struct {
	// FlushDelay is how long after the last mutation the working set is
	// written to the backend. Zero flushes synchronously inside Update.
	FlushDelay time.Duration

	// OnFlushError, if set, is called after every failed flush. It runs
	// without the store lock held.
	OnFlushError func(error)
}

// Store is the in-memory working set of tasks, subtasks and history,
// backed by a Backend. All reads and writes go through View and Update.
type Store struct {
	backend Backend
	opts    Options

	mu              sync.Mutex
	tasks           map[string]model.Task
	subtasks        map[string]model.Subtask
	history         map[string]model.HistoryEntry
	historySubtasks map[string]model.HistorySubtask
	gen             uint64
	dirty           bool
	timer           *time.Timer
	err             error
	loadErr         error
	preserved       bool
	closed          bool

	// flushMu serializes backend writes so snapshots land in order.
	flushMu sync.Mutex
}

// Open loads the backend's saved state into a new Store. A load failure
// is logged and recorded in LoadErr, and the store starts empty; Open only
// fails for a nil backend. The unreadable state is never overwritten
// before the backend has preserved it (see Preserver).
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("opening store: nil backend")
	}

	s := &Store{
		backend:         backend,
		opts:            opts,
		tasks:           make(map[string]model.Task),
		subtasks:        make(map[string]model.Subtask),
		history:         make(map[string]model.HistoryEntry),
		historySubtasks: make(map[string]model.HistorySubtask),
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		log.Printf("store: loading saved state, starting empty: %v", err)
		s.loadErr = model.AsStorageError("load", model.StorageUnavailable, err)
		return s, nil
	}
	s.fill(snap)

	return s, nil
}

// fill copies a snapshot into the empty working set, dropping subtasks
// whose parent is missing.
func (s *Store) fill(snap Snapshot) {
	for _, t := range snap.Tasks {
		t.Subtasks = nil
		s.tasks[t.ID] = t
	}
	for _, st := range snap.Subtasks {
		if _, ok := s.tasks[st.TaskID]; !ok {
			log.Printf("store: dropping subtask %s of missing task %s", st.ID, st.TaskID)
			continue
		}
		s.subtasks[st.ID] = st
	}
	for _, h := range snap.History {
		h.Subtasks = nil
		s.history[h.ID] = h
	}
	for _, hs := range snap.HistorySubtasks {
		if _, ok := s.history[hs.HistoryID]; !ok {
			log.Printf("store: dropping snapshot subtask %s of missing entry %s", hs.ID, hs.HistoryID)
			continue
		}
		s.historySubtasks[hs.ID] = hs
	}
}

// LoadErr returns the error that made Open start from an empty working
// set, or nil.
func (s *Store) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Err returns the error of the last failed flush. It is cleared by the
// next successful flush.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending reports whether there are mutations not yet written to the
// backend.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Empty reports whether the working set holds no records.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) == 0 && len(s.subtasks) == 0 &&
		len(s.history) == 0 && len(s.historySubtasks) == 0
}

// View runs fn with a read-only transaction.
func (s *Store) View(fn func(*Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s})
}

// Update runs fn with a writable transaction. The store lock is held for
// the whole call. If fn returns an error every mutation it made is undone.
//
// A successful Update schedules a flush. With a zero FlushDelay the flush
// runs before Update returns and its error is returned. Otherwise Update
// returns the error of the previous failed flush, if any; the mutation is
// applied in memory either way.
func (s *Store) Update(fn func(*Tx) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	tx := &Tx{s: s, writable: true}
	if err := fn(tx); err != nil {
		tx.rollback()
		s.mu.Unlock()
		return err
	}
	if len(tx.undo) == 0 {
		s.mu.Unlock()
		return nil
	}

	s.gen++
	s.dirty = true
	sticky := s.err

	if s.opts.FlushDelay <= 0 {
		s.mu.Unlock()
		return s.Flush(context.Background())
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.FlushDelay, s.flushTimer)
	s.mu.Unlock()

	return sticky
}

func (s *Store) flushTimer() {
	if err := s.Flush(context.Background()); err != nil {
		log.Printf("store: deferred flush failed: %v", err)
	}
}

// Flush writes pending mutations to the backend now, cancelling any
// scheduled flush. It returns nil when nothing is pending.
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	gen := s.gen
	mustPreserve := s.loadErr != nil && !s.preserved
	s.mu.Unlock()

	var err error
	if mustPreserve {
		err = s.preserve(ctx)
	}
	if err == nil {
		err = s.backend.Save(ctx, snap)
	}

	s.mu.Lock()
	if err != nil {
		err = model.AsStorageError("flush", model.StorageUnavailable, err)
		s.err = err
	} else {
		s.err = nil
		if s.gen == gen {
			s.dirty = false
		}
	}
	s.mu.Unlock()

	if err != nil && s.opts.OnFlushError != nil {
		s.opts.OnFlushError(err)
	}
	return err
}

// Close flushes pending mutations and closes the backend. The store
// rejects further updates even when the flush fails.
func (s *Store) Close(ctx context.Context) error {
	flushErr := s.Flush(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return flushErr
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("closing backend: %w", err))
	}
	return flushErr
}

// preserve asks the backend to set the unreadable saved state aside.
// Called with flushMu held.
func (s *Store) preserve(ctx context.Context) error {
	p, ok := s.backend.(Preserver)
	if !ok {
		return &model.StorageError{
			Op:   "preserving unreadable state",
			Kind: model.StorageCorrupt,
			Err:  errors.New("backend cannot preserve it, refusing to overwrite"),
		}
	}
	if err := p.Preserve(ctx); err != nil {
		return model.AsStorageError("preserving unreadable state", model.StorageUnavailable, err)
	}

	s.mu.Lock()
	s.preserved = true
	s.mu.Unlock()
	log.Printf("store: unreadable saved state preserved before overwrite")
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Tasks:           make([]model.Task, 0, len(s.tasks)),
		Subtasks:        make([]model.Subtask, 0, len(s.subtasks)),
		History:         make([]model.HistoryEntry, 0, len(s.history)),
		HistorySubtasks: make([]model.HistorySubtask, 0, len(s.historySubtasks)),
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, t)
	}
	for _, st := range s.subtasks {
		snap.Subtasks = append(snap.Subtasks, st)
	}
	for _, h := range s.history {
		snap.History = append(snap.History, h)
	}
	for _, hs := range s.historySubtasks {
		snap.HistorySubtasks = append(snap.HistorySubtasks, hs)
	}
	sortSnapshot(&snap)
	return snap
}
