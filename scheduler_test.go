// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func newTestLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
}

type errorRecorder struct {
	errs []error
	mu   sync.Mutex
}

func (x *errorRecorder) ReportError(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.errs = append(x.errs, err)
}

func TestNew_RequiresTimers(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoTimers) {
		t.Errorf("expected ErrNoTimers, got %v", err)
	}
	if _, err := New(&Global{Process: fakeRuntimeProcess{pid: 1}}); !errors.Is(err, ErrNoTimers) {
		t.Errorf("expected ErrNoTimers, got %v", err)
	}
	if _, err := Install(nil); !errors.Is(err, ErrNoTimers) {
		t.Errorf("expected ErrNoTimers, got %v", err)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	g := &Global{Timers: &manualTimers{}}
	for name, opt := range map[string]Option{
		"backend zero":     WithBackend(0),
		"backend range":    WithBackend(KindSetTimeout + 1),
		"empty prefix":     WithMessagePrefix(""),
		"non-positive":     WithRetryLogRates(map[time.Duration]int{time.Second: 0}),
		"non-monotonic":    WithRetryLogRates(map[time.Duration]int{time.Second: 10, time.Minute: 5}),
		"negative windows": WithRetryLogRates(map[time.Duration]int{-time.Second: 1}),
	} {
		if _, err := New(g, opt); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := New(g, nil, WithRetryLogRates(nil)); err != nil {
		t.Errorf("expected nil options to be ignored, got %v", err)
	}
}

func TestNew_ForcedBackendUnavailable(t *testing.T) {
	g := &Global{Timers: &manualTimers{}}
	for _, kind := range []Kind{KindNextTick, KindPostMessage, KindMessageChannel, KindReadyStateChange} {
		if _, err := New(g, WithBackend(kind)); !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("%s: expected ErrBackendUnavailable, got %v", kind, err)
		}
	}
	s, err := New(g, WithBackend(KindSetTimeout))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Kind() != KindSetTimeout {
		t.Errorf("unexpected kind: %s", s.Kind())
	}
}

func TestNew_ForcedBackendSkipsProbe(t *testing.T) {
	messaging := &fakeMessaging{}
	g := &Global{Timers: &manualTimers{}, Messaging: messaging}
	s, err := New(g, WithBackend(KindPostMessage), WithMessagePrefix("prefix:"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if len(messaging.posted) != 0 {
		t.Errorf("expected no probe, got %v", messaging.posted)
	}
	if len(messaging.listeners) != 1 {
		t.Errorf("expected a single listener, got %d", len(messaging.listeners))
	}

	h, err := s.SetImmediate(nil)
	if err != nil {
		t.Fatalf("SetImmediate failed: %v", err)
	}
	if len(messaging.posted) != 1 || messaging.posted[0] != "prefix:1" || h != 1 {
		t.Errorf("unexpected post %v for handle %d", messaging.posted, h)
	}
}

func TestPostMessageBackend_FiltersMessages(t *testing.T) {
	messaging := &fakeMessaging{}
	other := &fakeMessaging{}
	g := &Global{Timers: &manualTimers{}, Messaging: messaging}
	s, err := New(g, WithBackend(KindPostMessage), WithMessagePrefix("p$"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	calls := 0
	h, err := s.SetImmediate(func(...any) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("SetImmediate failed: %v", err)
	}

	listener := messaging.listeners[0]
	for _, event := range []*MessageEvent{
		nil,
		{Data: "p$1", Source: other},
		{Data: "p$1"},
		{Data: 1, Source: messaging},
		{Data: "q$1", Source: messaging},
		{Data: "p$x", Source: messaging},
		{Data: "p$", Source: messaging},
	} {
		listener(event)
	}
	if calls != 0 {
		t.Fatalf("task ran for an unrelated message")
	}

	listener(&MessageEvent{Data: "p$" + "1", Source: messaging})
	listener(&MessageEvent{Data: "p$" + "1", Source: messaging})
	if calls != 1 || h != 1 {
		t.Errorf("expected exactly one call, got %d", calls)
	}
}

func TestScheduler_PostFailureUnregisters(t *testing.T) {
	errTimers := errors.New("timers unavailable")
	timers := &manualTimers{err: errTimers}
	s, err := New(&Global{Timers: timers})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.SetImmediate(nil); !errors.Is(err, errTimers) {
		t.Errorf("expected errTimers, got %v", err)
	}
	if s.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", s.Pending())
	}
}

func TestScheduler_ReportsToGlobalErrors(t *testing.T) {
	var buf bytes.Buffer
	timers := &manualTimers{}
	reporter := &errorRecorder{}
	s, err := New(&Global{Timers: timers, Errors: reporter}, WithLogger(newTestLogger(&buf)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	errBoom := errors.New("boom")
	if _, err := s.SetImmediate(func(...any) error { return errBoom }); err != nil {
		t.Fatalf("SetImmediate failed: %v", err)
	}
	timers.run()

	if len(reporter.errs) != 1 || !errors.Is(reporter.errs[0], errBoom) {
		t.Errorf("unexpected reported errors: %v", reporter.errs)
	}
	if strings.Contains(buf.String(), "task failed") {
		t.Errorf("unexpected log output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"backend":"setTimeout"`) {
		t.Errorf("expected backend selection to be logged: %s", buf.String())
	}
}

func TestScheduler_LogsErrorsWithoutReporter(t *testing.T) {
	var buf bytes.Buffer
	timers := &manualTimers{}
	s, err := New(&Global{Timers: timers}, WithLogger(newTestLogger(&buf)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := s.Schedule(Source("x++")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	timers.run()

	output := buf.String()
	if !strings.Contains(output, `"lvl":"err"`) || !strings.Contains(output, ErrNoEvaluator.Error()) {
		t.Errorf("unexpected log output: %s", output)
	}
	if stats := s.Stats(); stats.Failed != 1 || stats.Executed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestScheduler_RetryLogsRateLimited(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
		want int
	}{
		{"limited", []Option{WithRetryLogRates(map[time.Duration]int{time.Minute: 1})}, 1},
		{"unlimited", []Option{WithRetryLogRates(nil)}, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			timers := &manualTimers{}
			s, err := New(&Global{Timers: timers}, append(tc.opts, WithLogger(newTestLogger(&buf)))...)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			calls := 0
			var b Handle
			if _, err := s.SetImmediate(func(...any) error {
				for i := 0; i < 3; i++ {
					s.registry.dispatch(b)
				}
				return nil
			}); err != nil {
				t.Fatalf("SetImmediate failed: %v", err)
			}
			b, err = s.SetImmediate(func(...any) error {
				calls++
				return nil
			})
			if err != nil {
				t.Fatalf("SetImmediate failed: %v", err)
			}
			timers.run()

			if calls != 1 {
				t.Errorf("expected 1 call, got %d", calls)
			}
			if got := strings.Count(buf.String(), "deferring dispatch"); got != tc.want {
				t.Errorf("expected %d retry logs, got %d: %s", tc.want, got, buf.String())
			}
			if stats := s.Stats(); stats.Retried != 3 {
				t.Errorf("unexpected stats: %+v", stats)
			}
		})
	}
}

func TestInstall_Idempotent(t *testing.T) {
	g := &Global{Timers: &manualTimers{}}

	var wg sync.WaitGroup
	results := make([]Immediate, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Install(g)
			if err != nil {
				t.Errorf("Install failed: %v", err)
			}
			results[i] = v
		}()
	}
	wg.Wait()

	for _, v := range results {
		if v != g.Immediate {
			t.Fatalf("expected every Install to return the installed implementation")
		}
	}

	existing := g.Immediate
	if v, err := Install(g, WithBackend(KindNextTick)); err != nil || v != existing {
		t.Errorf("expected existing implementation, ignoring options, got %v, %v", v, err)
	}
}

func TestInstall_FailureLeavesGlobalUnchanged(t *testing.T) {
	g := &Global{Timers: &manualTimers{}}
	if _, err := Install(g, WithBackend(KindNextTick)); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if g.Immediate != nil {
		t.Error("expected no implementation installed")
	}
}
