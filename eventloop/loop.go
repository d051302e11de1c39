package eventloop

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// TimerID identifies a timer scheduled by [Loop.ScheduleTimer].
type TimerID uint64

// Loop is a single goroutine, cooperative event loop, modelling the task
// queues of a JavaScript host.
//
// Each iteration (tick) runs, in order:
//  1. Expired timers (earliest deadline first, FIFO for equal deadlines)
//  2. External tasks ([Loop.Submit]), queued before the tick started
//  3. Microtasks ([Loop.ScheduleMicrotask])
//
// The nextTick queue ([Loop.ScheduleNextTick]) is drained after every task,
// timer, and microtask, before anything else runs.
//
// Work may be scheduled from any goroutine. Callbacks only ever run on the
// goroutine calling [Loop.Run].
type Loop struct {
	// Prevent copying
	_ [0]func()

	logger  *logiface.Logger[logiface.Event]
	onError func(err error)

	// State machine
	state stateCell

	// Wake-up mechanism, buffered (1), never closed
	wake chan struct{}

	// Loop termination signaling
	loopDone chan struct{}

	// guarded by mu
	timerIndex map[TimerID]*timer
	external   []func()
	nextTicks  []func()
	microtasks []func()
	timers     timerHeap

	// Goroutine tracking
	loopGoroutineID atomic.Uint64

	nextTimerID TimerID

	// Loop ID
	id uint64

	stopOnce sync.Once
	mu       sync.Mutex

	strictMicrotaskOrdering bool
}

// timer represents a scheduled task
type timer struct {
	when  time.Time
	fn    func()
	id    TimerID
	index int
}

// timerHeap is a min-heap of timers
type timerHeap []*timer

// Implement heap.Interface for timerHeap
func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].id < h[j].id
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.index = -1
	*h = old[:n-1]
	return x
}

var loopIDCounter atomic.Uint64

// New creates a new event loop. It must be started with [Loop.Run].
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Loop{
		id:                      loopIDCounter.Add(1),
		logger:                  cfg.logger,
		onError:                 cfg.onError,
		strictMicrotaskOrdering: cfg.strictMicrotaskOrdering,
		wake:                    make(chan struct{}, 1),
		loopDone:                make(chan struct{}),
		timerIndex:              make(map[TimerID]*timer),
	}, nil
}

// Run runs the event loop and blocks until fully stopped.
//
// Run blocks until the loop terminates (via Shutdown(), Close(), or ctx cancellation).
// To run in a separate goroutine, use: `go loop.Run(ctx)`.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopThread() {
		return ErrReentrantRun
	}

	if !l.state.transition(StateAwake, StateRunning) {
		if l.state.load() == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	// Close loopDone when run exits to signal completion to Shutdown waiters
	defer close(l.loopDone)

	return l.run(ctx)
}

// Shutdown gracefully shuts down the event loop.
//
// Shutdown waits for all queued tasks, nextTicks, and microtasks (including
// any they schedule) to complete. Pending timers are discarded. It blocks
// until termination completes or ctx expires, unless called from the loop
// goroutine, in which case it returns immediately.
//
// Only the first call has any effect, subsequent calls return
// [ErrLoopTerminated].
func (l *Loop) Shutdown(ctx context.Context) error {
	err := ErrLoopTerminated
	l.stopOnce.Do(func() {
		err = l.shutdownImpl(ctx)
	})
	return err
}

// shutdownImpl contains the actual Shutdown implementation.
func (l *Loop) shutdownImpl(ctx context.Context) error {
	if err := l.terminate(); err != nil {
		return err
	}

	if l.state.load() == StateTerminated || l.isLoopThread() {
		return nil
	}

	// Wait for termination via channel, NOT polling
	select {
	case <-l.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close initiates termination without waiting for the loop to drain.
func (l *Loop) Close() error {
	return l.terminate()
}

// terminate transitions to StateTerminating, or directly to StateTerminated
// if the loop never started.
func (l *Loop) terminate() error {
	for {
		currentState := l.state.load()
		if currentState == StateTerminated || currentState == StateTerminating {
			return ErrLoopTerminated
		}

		if l.state.transition(currentState, StateTerminating) {
			if currentState == StateAwake {
				l.mu.Lock()
				l.state.store(StateTerminated)
				l.mu.Unlock()
				return nil
			}
			l.wakeup()
			return nil
		}
	}
}

// run is the main loop goroutine.
func (l *Loop) run(ctx context.Context) error {
	l.loopGoroutineID.Store(getGoroutineID())
	defer l.loopGoroutineID.Store(0)

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Log(`eventloop: loop started`)
	defer l.logger.Debug().
		Uint64(`loop`, l.id).
		Log(`eventloop: loop stopped`)

	for {
		// Check context for external cancellation
		select {
		case <-ctx.Done():
			_ = l.terminate()
			l.shutdown()
			return ctx.Err()
		default:
		}

		// Check termination
		if l.state.load() == StateTerminating {
			l.shutdown()
			return nil
		}

		l.tick()

		l.poll(ctx)
	}
}

// shutdown drains every queue, then stores StateTerminated.
func (l *Loop) shutdown() {
	for {
		l.drainNextTicks()
		l.processExternal()
		l.drainMicrotasks()

		l.mu.Lock()
		if len(l.external) == 0 && len(l.nextTicks) == 0 && len(l.microtasks) == 0 {
			// tasks may be submitted up until this point
			l.state.store(StateTerminated)
			clear(l.timerIndex)
			l.timers = nil
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()
	}
}

// tick is a single iteration of the event loop. NextTicks queued from
// outside the loop run first.
func (l *Loop) tick() {
	l.drainNextTicks()
	l.runTimers()
	l.processExternal()
	l.drainMicrotasks()
}

// runTimers executes all timers expired as of the start of the call.
func (l *Loop) runTimers() {
	now := time.Now()
	for {
		l.mu.Lock()
		if len(l.timers) == 0 || l.timers[0].when.After(now) {
			l.mu.Unlock()
			return
		}
		t := heap.Pop(&l.timers).(*timer)
		delete(l.timerIndex, t.id)
		l.mu.Unlock()

		l.runTask(t.fn)
	}
}

// processExternal runs the external tasks queued prior to the call.
func (l *Loop) processExternal() {
	l.mu.Lock()
	tasks := l.external
	l.external = nil
	l.mu.Unlock()

	for i, fn := range tasks {
		l.runTask(fn)
		tasks[i] = nil
	}
}

// runTask runs a macrotask, followed by the nextTick queue.
func (l *Loop) runTask(fn func()) {
	l.safeExecute(fn)
	l.drainNextTicks()
	if l.strictMicrotaskOrdering {
		l.drainMicrotasks()
	}
}

func (l *Loop) drainNextTicks() {
	for {
		fn, ok := l.pop(&l.nextTicks)
		if !ok {
			return
		}
		l.safeExecute(fn)
	}
}

// drainMicrotasks drains the microtask queue, including any microtasks
// scheduled while draining.
func (l *Loop) drainMicrotasks() {
	for {
		fn, ok := l.pop(&l.microtasks)
		if !ok {
			return
		}
		l.safeExecute(fn)
		l.drainNextTicks()
	}
}

func (l *Loop) pop(queue *[]func()) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := *queue
	if len(q) == 0 {
		return nil, false
	}
	fn := q[0]
	q[0] = nil
	if len(q) == 1 {
		*queue = q[:0]
	} else {
		*queue = q[1:]
	}
	return fn, true
}

// poll blocks until woken, the next timer is due, or ctx is done.
func (l *Loop) poll(ctx context.Context) {
	if !l.state.transition(StateRunning, StateSleeping) {
		return
	}
	defer l.state.transition(StateSleeping, StateRunning)

	l.mu.Lock()
	ready := len(l.external) != 0 || len(l.nextTicks) != 0 || len(l.microtasks) != 0
	var delay time.Duration
	hasTimer := len(l.timers) != 0
	if hasTimer {
		delay = time.Until(l.timers[0].when)
	}
	l.mu.Unlock()

	if ready || (hasTimer && delay <= 0) {
		return
	}

	var timerC <-chan time.Time
	if hasTimer {
		t := time.NewTimer(delay)
		defer t.Stop()
		timerC = t.C
	}

	select {
	case <-l.wake:
	case <-timerC:
	case <-ctx.Done():
	}
}

// wakeup signals the loop, without blocking. Signals are coalesced.
func (l *Loop) wakeup() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// push appends fn to queue, unless the loop has terminated.
//
// State Policy during shutdown:
//   - StateTerminated: returns ErrLoopTerminated
//   - StateTerminating: ALLOWS submission (loop needs to drain in-flight work)
func (l *Loop) push(queue *[]func(), fn func()) error {
	l.mu.Lock()
	if l.state.load() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	*queue = append(*queue, fn)
	l.mu.Unlock()
	l.wakeup()
	return nil
}

// Submit submits a task to the external queue. It is safe to call from any
// goroutine.
func (l *Loop) Submit(fn func()) error {
	return l.push(&l.external, fn)
}

// ScheduleMicrotask schedules a microtask.
func (l *Loop) ScheduleMicrotask(fn func()) error {
	return l.push(&l.microtasks, fn)
}

// ScheduleNextTick schedules fn to run immediately after the current task,
// ahead of microtasks, like Node.js's process.nextTick.
func (l *Loop) ScheduleNextTick(fn func()) error {
	return l.push(&l.nextTicks, fn)
}

// ScheduleTimer schedules fn to be executed after the specified delay.
// Negative delays are treated as zero.
func (l *Loop) ScheduleTimer(delay time.Duration, fn func()) (TimerID, error) {
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	if l.state.load() == StateTerminated {
		l.mu.Unlock()
		return 0, ErrLoopTerminated
	}
	l.nextTimerID++
	t := &timer{
		id:   l.nextTimerID,
		when: time.Now().Add(delay),
		fn:   fn,
	}
	heap.Push(&l.timers, t)
	l.timerIndex[t.id] = t
	l.mu.Unlock()

	l.wakeup()

	return t.id, nil
}

// CancelTimer cancels a timer that has not yet fired.
func (l *Loop) CancelTimer(id TimerID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.timerIndex[id]
	if !ok {
		return ErrTimerNotFound
	}
	heap.Remove(&l.timers, t.index)
	delete(l.timerIndex, id)
	return nil
}

// SetTimeout schedules fn after delay, discarding the timer ID.
func (l *Loop) SetTimeout(fn func(), delay time.Duration) error {
	_, err := l.ScheduleTimer(delay, fn)
	return err
}

// ReportError logs err, then passes it to the [WithOnError] hook, if any.
// Nil errors are ignored.
func (l *Loop) ReportError(err error) {
	if err == nil {
		return
	}
	l.logger.Err().
		Err(err).
		Uint64(`loop`, l.id).
		Log(`eventloop: uncaught error`)
	if l.onError != nil {
		l.onError(err)
	}
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.load()
}

// Done returns a channel closed once [Loop.Run] returns.
func (l *Loop) Done() <-chan struct{} {
	return l.loopDone
}

// safeExecute executes a function with panic recovery, reporting any panic
// as a [PanicError].
func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.ReportError(PanicError{Value: r})
		}
	}()

	fn()
}

// isLoopThread checks if we're on the loop goroutine.
func (l *Loop) isLoopThread() bool {
	loopID := l.loopGoroutineID.Load()
	if loopID == 0 {
		return false
	}
	return getGoroutineID() == loopID
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
