package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nhle/checklist/internal/model"
)

// callTimeout bounds a single capability call.
const callTimeout = 10 * time.Second

// job is a queued capability call.
type job struct {
	name string
	run  func(ctx context.Context, c Capability) error
}

// Bridge keeps at most one notification pinned. Capability calls run on a
// single worker goroutine in the order they were requested; failures are
// logged and otherwise ignored. A disabled bridge does nothing.
type Bridge struct {
	cap     Capability
	enabled bool
	now     func() time.Time

	mu     sync.Mutex
	pinned string
	queue  []job
	closed bool

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock sets the time source used for countdowns.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// NewBridge asks c for permission once. A nil capability, a refusal or an
// error leaves the bridge disabled.
func NewBridge(ctx context.Context, c Capability, opts ...Option) *Bridge {
	b := &Bridge{
		cap:  c,
		now:  time.Now,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	if c == nil {
		return b
	}
	granted, err := c.RequestPermission(ctx)
	if err != nil {
		log.Printf("notify: requesting permission: %v", err)
		return b
	}
	if !granted {
		log.Printf("notify: permission not granted, notifications disabled")
		return b
	}

	b.enabled = true
	b.wg.Add(1)
	go b.run()
	return b
}

// Enabled reports whether notifications are delivered.
func (b *Bridge) Enabled() bool {
	return b.enabled
}

// Pinned returns the id of the pinned task, or "".
func (b *Bridge) Pinned() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pinned
}

// Display pins task, replacing any previously pinned notification.
func (b *Bridge) Display(task model.Task) {
	if !b.enabled {
		return
	}
	n := Content(task, b.now())

	b.mu.Lock()
	prev := b.pinned
	b.pinned = task.ID
	if prev != "" && prev != task.ID {
		b.enqueueLocked(job{name: "cancel " + prev, run: func(ctx context.Context, c Capability) error {
			return c.Cancel(ctx, prev)
		}})
	}
	b.enqueueLocked(job{name: "schedule " + n.ID, run: func(ctx context.Context, c Capability) error {
		return c.Schedule(ctx, n)
	}})
	b.mu.Unlock()
}

// Refresh re-renders the notification if task is the pinned one.
func (b *Bridge) Refresh(task model.Task) {
	if !b.enabled || b.Pinned() != task.ID {
		return
	}
	b.Display(task)
}

// Clear cancels the pinned notification.
func (b *Bridge) Clear() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

// Forget clears the notification if taskID is pinned. Callers use it
// after the task is completed or deleted.
func (b *Bridge) Forget(taskID string) {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pinned == taskID {
		b.clearLocked()
	}
}

func (b *Bridge) clearLocked() {
	if b.pinned == "" {
		return
	}
	id := b.pinned
	b.pinned = ""
	b.enqueueLocked(job{name: "cancel " + id, run: func(ctx context.Context, c Capability) error {
		return c.Cancel(ctx, id)
	}})
}

// OnAction forwards host interactions to fn. An empty action id is
// reported as DefaultActionID.
func (b *Bridge) OnAction(fn func(Action)) {
	if !b.enabled || fn == nil {
		return
	}
	b.cap.OnAction(func(a Action) {
		if a.ActionID == "" {
			a.ActionID = DefaultActionID
		}
		fn(a)
	})
}

// Close runs the calls still queued and stops the worker.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	if b.enabled {
		close(b.stop)
		b.wg.Wait()
	}
}

func (b *Bridge) enqueueLocked(j job) {
	if b.closed {
		return
	}
	b.queue = append(b.queue, j)
	select {
	case b.wake <- struct{}{}:
	default:
		// Worker already has a pending wake-up.
	}
}

func (b *Bridge) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.wake:
			b.drain()
		case <-b.stop:
			b.drain()
			return
		}
	}
}

func (b *Bridge) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		j := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		if err := j.run(ctx, b.cap); err != nil {
			log.Printf("notify: %s: %v", j.name, err)
		}
		cancel()
	}
}

// Content renders the notification for task: the title with a clipboard
// marker, and progress and countdown as the body. Tasks without subtasks
// show only the countdown.
func Content(task model.Task, now time.Time) Notification {
	countdown := model.CountdownTo(task.DueDate, now).Text
	body := countdown
	if len(task.Subtasks) > 0 {
		body = fmt.Sprintf("%d%% complete • %s", task.Progress(), countdown)
	}
	return Notification{
		ID:         task.ID,
		Title:      "📋 " + task.Title,
		Body:       body,
		Persistent: true,
	}
}
