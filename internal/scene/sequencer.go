// internal/scene/sequencer.go
//
// Sequencer: the linear scene state machine.
// Responsibilities:
//   - Hold the descriptor array and the current index.
//   - Navigation (Next/Prev/GoTo) clamped to bounds, with the quiz gate in
//     CanGoNext and CheckJump.
//   - Patch the current descriptor for part placement and quiz selection.
//   - Notify listeners synchronously after every successful mutation.
//   - Timed auto-advance once every part is placed.
//
// Concurrency:
//   - One mutex guards index, array, and timer bookkeeping.
//   - Listeners run after the lock is released, with the snapshot taken under it,
//     so a listener may call back into the Sequencer.
//   - Every index change bumps an epoch; a delayed advance only fires if the epoch
//     it captured is still current. Navigation also stops the pending timer.

package scene

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	ErrNotPartsMode    = errors.New("scene: current scene is not in parts mode")
	ErrPartUnavailable = errors.New("scene: part is not available")
	ErrNotQuizMode     = errors.New("scene: current scene is not a quiz")
	ErrUnknownOption   = errors.New("scene: unknown quiz option")
	ErrQuizAnswered    = errors.New("scene: quiz already answered correctly")
	ErrIndexRange      = errors.New("scene: index out of range")
	ErrQuizGate        = errors.New("scene: an unanswered quiz lies ahead")
)

// DefaultAutoAdvance is the delay between the last part being placed and the
// automatic move to the next scene.
const DefaultAutoAdvance = time.Second

// Listener receives a snapshot of the current descriptor.
type Listener func(Descriptor)

// Stopper cancels a pending delayed call. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Timer schedules delayed callbacks.
type Timer interface {
	AfterFunc(d time.Duration, fn func()) Stopper
}

// TimerFunc adapts a function to Timer.
type TimerFunc func(d time.Duration, fn func()) Stopper

func (f TimerFunc) AfterFunc(d time.Duration, fn func()) Stopper { return f(d, fn) }

type realTimer struct{}

func (realTimer) AfterFunc(d time.Duration, fn func()) Stopper { return time.AfterFunc(d, fn) }

type listenerEntry struct {
	id int
	fn Listener
}

// Sequencer owns the scene array and the cursor into it.
type Sequencer struct {
	mu       sync.Mutex
	authored []Descriptor
	states   []Descriptor
	index    int
	reached  int
	epoch    uint64
	revision uint64
	pending  Stopper

	timer   Timer
	advance time.Duration

	listeners []listenerEntry
	nextID    int
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithTimer replaces the real-time timer (tests, event loops).
func WithTimer(t Timer) Option {
	return func(s *Sequencer) { s.timer = t }
}

// WithAutoAdvance sets the delay after the last part is placed. A value <= 0
// disables the automatic advance.
func WithAutoAdvance(d time.Duration) Option {
	return func(s *Sequencer) { s.advance = d }
}

// New builds a Sequencer positioned at index 0. The descriptors are copied.
// It panics on an empty sequence; authored content is validated before use.
func New(ds []Descriptor, opts ...Option) *Sequencer {
	if len(ds) == 0 {
		panic("scene: empty sequence")
	}
	s := &Sequencer{
		authored: cloneAll(ds),
		states:   cloneAll(ds),
		timer:    realTimer{},
		advance:  DefaultAutoAdvance,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Current returns a copy of the descriptor at the current index.
func (s *Sequencer) Current() Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[s.index].Clone()
}

// At returns a copy of the descriptor at i.
func (s *Sequencer) At(i int) (Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.states) {
		return Descriptor{}, false
	}
	return s.states[i].Clone(), true
}

func (s *Sequencer) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Sequencer) Len() int { return len(s.authored) }

// Revision increases on every successful mutation.
func (s *Sequencer) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Reached is the furthest index visited since construction or Reset.
func (s *Sequencer) Reached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reached
}

// CompletedIDs lists the ids of every scene before the furthest one reached.
func (s *Sequencer) CompletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, s.reached)
	for _, d := range s.states[:s.reached] {
		ids = append(ids, d.ID)
	}
	return ids
}

func (s *Sequencer) CanGoPrev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index > 0
}

// CanGoNext reports whether forward navigation is allowed. On a quiz scene it
// requires a right answer.
func (s *Sequencer) CanGoNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canGoNextLocked()
}

func (s *Sequencer) canGoNextLocked() bool {
	atEnd := s.index >= len(s.states)-1
	if d := s.states[s.index]; d.IsQuiz() {
		return d.Quiz.Evaluation == EvalRight && !atEnd
	}
	return !atEnd
}

// Next moves forward one scene. It reports false (and notifies nobody) at the
// last scene. The quiz gate is not enforced here; callers acting for the
// learner check CanGoNext first.
func (s *Sequencer) Next() bool {
	s.mu.Lock()
	if s.index >= len(s.states)-1 {
		s.mu.Unlock()
		return false
	}
	snap := s.moveLocked(s.index + 1)
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// Prev moves back one scene; false at index 0.
func (s *Sequencer) Prev() bool {
	s.mu.Lock()
	if s.index == 0 {
		s.mu.Unlock()
		return false
	}
	snap := s.moveLocked(s.index - 1)
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// GoTo jumps to i; out-of-range indexes are ignored.
func (s *Sequencer) GoTo(i int) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.states) {
		s.mu.Unlock()
		return false
	}
	snap := s.moveLocked(i)
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// CheckJump returns nil when a learner may jump to i: i is in range and every
// quiz from the current scene up to i (exclusive) is answered right.
// Backward jumps are never gated.
func (s *Sequencer) CheckJump(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.states) {
		return ErrIndexRange
	}
	for _, d := range s.states[min(s.index, i):i] {
		if d.IsQuiz() && d.Quiz.Evaluation != EvalRight {
			return ErrQuizGate
		}
	}
	return nil
}

// Restore positions the sequencer at a persisted index, clamped to bounds.
func (s *Sequencer) Restore(i int) {
	s.mu.Lock()
	i = max(0, min(i, len(s.states)-1))
	snap := s.moveLocked(i)
	s.mu.Unlock()
	s.notify(snap)
}

// Reset restores the authored content and returns to index 0.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	s.states = cloneAll(s.authored)
	s.reached = 0
	snap := s.moveLocked(0)
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Sequencer) moveLocked(i int) Descriptor {
	s.index = i
	s.reached = max(s.reached, i)
	s.epoch++
	s.revision++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	return s.states[i].Clone()
}

// PlacePart moves part from the available to the placed set of the current
// parts scene. When nothing is left to place the sequencer advances on its own
// after the auto-advance delay, unless the learner navigates first.
func (s *Sequencer) PlacePart(part string) error {
	s.mu.Lock()
	d := s.states[s.index]
	if d.ToolMode != ToolParts {
		s.mu.Unlock()
		return ErrNotPartsMode
	}
	at := slices.Index(d.AvailableParts, part)
	if at < 0 {
		s.mu.Unlock()
		return ErrPartUnavailable
	}

	next := d.Clone()
	next.AvailableParts = slices.Delete(next.AvailableParts, at, at+1)
	next.PlacedParts = append(next.PlacedParts, part)
	if len(next.AvailableParts) == 0 {
		if next.FooterAllPlaced != "" {
			next.FooterText = next.FooterAllPlaced
		}
	} else if next.FooterPartial != "" {
		next.FooterText = next.FooterPartial
	}
	s.states[s.index] = next
	s.revision++

	if len(next.AvailableParts) == 0 && s.advance > 0 {
		epoch := s.epoch
		if s.pending != nil {
			s.pending.Stop()
		}
		s.pending = s.timer.AfterFunc(s.advance, func() { s.advanceFrom(epoch) })
	}
	snap := next.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// advanceFrom is the delayed half of PlacePart.
func (s *Sequencer) advanceFrom(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || s.index >= len(s.states)-1 {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	snap := s.moveLocked(s.index + 1)
	s.mu.Unlock()
	s.notify(snap)
}

// SelectQuizOption records the learner's answer on the current quiz scene.
// A wrong answer may be retried; once right, the question is closed.
func (s *Sequencer) SelectQuizOption(option string) error {
	s.mu.Lock()
	d := s.states[s.index]
	if !d.IsQuiz() {
		s.mu.Unlock()
		return ErrNotQuizMode
	}
	if !slices.Contains(d.Quiz.Options, option) {
		s.mu.Unlock()
		return ErrUnknownOption
	}
	if d.Quiz.Evaluation == EvalRight {
		s.mu.Unlock()
		return ErrQuizAnswered
	}

	next := d.Clone()
	q := next.Quiz
	q.Selection = option
	if option == q.Answer {
		q.Evaluation = EvalRight
		q.Feedback = q.FeedbackRight
		if q.FooterRight != "" {
			next.FooterText = q.FooterRight
		}
	} else {
		q.Evaluation = EvalWrong
		q.Feedback = q.FeedbackWrong
		if q.FooterWrong != "" {
			next.FooterText = q.FooterWrong
		}
	}
	s.states[s.index] = next
	s.revision++
	snap := next.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// AddListener registers fn and returns an id for RemoveListener.
func (s *Sequencer) AddListener(fn Listener) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: s.nextID, fn: fn})
	return s.nextID
}

func (s *Sequencer) RemoveListener(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = slices.DeleteFunc(s.listeners, func(e listenerEntry) bool { return e.id == id })
}

func (s *Sequencer) notify(d Descriptor) {
	s.mu.Lock()
	ls := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, l := range ls {
		l.fn(d.Clone())
	}
}
