package reconcile

import (
	"sync"
	"time"

	"github.com/notewire/notewire/internal/core/model"
	"github.com/notewire/notewire/internal/core/observability/log"
)

// timerHandle wraps a pending timer so the firing closure can recognize
// whether it has been superseded by a reschedule.
type timerHandle struct {
	timer *time.Timer
}

// Debouncer coalesces rapid mutation notifications per entity into a single
// delayed touch. At most one live timer per id; a new Schedule fully
// supersedes the previous one.
type Debouncer struct {
	mu     sync.Mutex
	timers map[model.EntityID]*timerHandle
	window time.Duration
	touch  func(model.EntityID)
	logger log.Log
	closed bool
}

// NewDebouncer creates a scheduler that calls touch once per id, window after
// the most recent Schedule for that id.
func NewDebouncer(window time.Duration, touch func(model.EntityID), logger log.Log) *Debouncer {
	return &Debouncer{
		timers: make(map[model.EntityID]*timerHandle),
		window: window,
		touch:  touch,
		logger: logger,
	}
}

// Schedule cancels any pending timer for id and starts a fresh window.
func (d *Debouncer) Schedule(id model.EntityID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if prev, ok := d.timers[id]; ok {
		prev.timer.Stop()
	}

	handle := &timerHandle{}
	handle.timer = time.AfterFunc(d.window, func() { d.fire(id, handle) })
	d.timers[id] = handle
}

// Cancel drops any pending timer for id without firing it.
func (d *Debouncer) Cancel(id model.EntityID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.timers[id]; ok {
		prev.timer.Stop()
		delete(d.timers, id)
	}
}

// Rekey migrates a pending timer from a provisional id to its confirmed id.
// The timer is re-issued under the new id with a full window, so a sync never
// targets an id the backend does not recognize.
func (d *Debouncer) Rekey(oldID, newID model.EntityID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.timers[oldID]
	if !ok {
		return
	}
	prev.timer.Stop()
	delete(d.timers, oldID)

	if d.closed {
		return
	}
	if cur, exists := d.timers[newID]; exists {
		cur.timer.Stop()
	}
	handle := &timerHandle{}
	handle.timer = time.AfterFunc(d.window, func() { d.fire(newID, handle) })
	d.timers[newID] = handle

	d.logger.Debug("Migrated pending sync",
		log.String("old_id", string(oldID)),
		log.String("new_id", string(newID)))
}

// Pending reports whether a timer is live for id.
func (d *Debouncer) Pending(id model.EntityID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[id]
	return ok
}

// Stop cancels every pending timer. The debouncer accepts no further work.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, handle := range d.timers {
		handle.timer.Stop()
		delete(d.timers, id)
	}
}

func (d *Debouncer) fire(id model.EntityID, handle *timerHandle) {
	d.mu.Lock()
	if d.closed || d.timers[id] != handle {
		// superseded by a reschedule or shutdown
		d.mu.Unlock()
		return
	}
	delete(d.timers, id)
	d.mu.Unlock()

	d.touch(id)
}
