package activity

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := NewLoop()
	defer l.Stop()

	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	// tasks posted from a task run after it
	err := l.Do(context.Background(), func() error {
		l.Post(func() { got = append(got, 99) })
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = l.Do(context.Background(), func() error { return nil })
	if !slices.Equal(got, []int{0, 1, 2, 3, 4, 99}) {
		t.Errorf("Expected ordered tasks, got %v", got)
	}
}

func TestLoopDoReturnsErrors(t *testing.T) {
	l := NewLoop()
	defer l.Stop()

	want := errors.New("boom")
	if err := l.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
	if err := l.Do(context.Background(), func() error { panic("bad") }); err == nil {
		t.Error("Expected panic reported as error")
	}
	// the loop survives a panicking task
	l.Post(func() { panic("again") })
	if err := l.Do(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("Expected loop alive, got %v", err)
	}
}

func TestLoopDoHonoursContext(t *testing.T) {
	l := NewLoop()
	defer l.Stop()

	release := make(chan struct{})
	l.Post(func() { <-release })
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline, got %v", err)
	}
	close(release)
}

func TestLoopStop(t *testing.T) {
	l := NewLoop()
	l.Stop()
	l.Stop()
	if l.Post(func() {}) {
		t.Error("Expected Post to fail after Stop")
	}
	if err := l.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestLoopTimerFiresOnLoop(t *testing.T) {
	l := NewLoop()
	defer l.Stop()

	fired := make(chan struct{})
	l.Timer().AfterFunc(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	st := l.Timer().AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	if !st.Stop() {
		t.Error("Expected Stop to report a pending timer")
	}
}
