package scene

import (
	"errors"
	"math/rand"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"
)

// fakeTimer collects delayed calls until Fire.
type fakeTimer struct {
	calls []*fakeCall
}

type fakeCall struct {
	d       time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *fakeCall) Stop() bool {
	was := !c.stopped && !c.fired
	c.stopped = true
	return was
}

func (t *fakeTimer) AfterFunc(d time.Duration, fn func()) Stopper {
	c := &fakeCall{d: d, fn: fn}
	t.calls = append(t.calls, c)
	return c
}

// Fire runs every call that has not been stopped, ignoring the delay.
func (t *fakeTimer) Fire() int {
	n := 0
	for _, c := range t.calls {
		if c.stopped || c.fired {
			continue
		}
		c.fired = true
		c.fn()
		n++
	}
	return n
}

// FireStale runs every call, stopped or not, to exercise the epoch guard.
func (t *fakeTimer) FireStale() {
	for _, c := range t.calls {
		c.fn()
	}
}

func mustDefault(t *testing.T) []Descriptor {
	t.Helper()
	ds, err := Default()
	if err != nil {
		t.Fatalf("load default scenes: %v", err)
	}
	return ds
}

func indexOf(t *testing.T, ds []Descriptor, id string) int {
	t.Helper()
	i := slices.IndexFunc(ds, func(d Descriptor) bool { return d.ID == id })
	if i < 0 {
		t.Fatalf("scene %q not found", id)
	}
	return i
}

func newTestSequencer(t *testing.T) (*Sequencer, *fakeTimer) {
	t.Helper()
	ft := &fakeTimer{}
	return New(mustDefault(t), WithTimer(ft)), ft
}

func TestDefaultContentIsValid(t *testing.T) {
	ds := mustDefault(t)
	if len(ds) != 24 {
		t.Errorf("Expected 24 scenes, got %d", len(ds))
	}
	if err := Validate(ds); err != nil {
		t.Errorf("Expected valid content, got %v", err)
	}
}

func TestScenarioStartThenThreeNexts(t *testing.T) {
	s, _ := newTestSequencer(t)
	if !s.Current().ShowStartButton {
		t.Fatal("Expected index 0 to show the start button")
	}
	for i := 0; i < 3; i++ {
		s.Next()
	}
	if s.Index() != 3 {
		t.Fatalf("Expected index 3, got %d", s.Index())
	}
	d := s.Current()
	if !d.ShowToolPanel || d.ToolMode != ToolSlicer {
		t.Errorf("Expected slicer tool panel, got panel=%v mode=%q", d.ShowToolPanel, d.ToolMode)
	}
	if d.Cut != CutNone {
		t.Errorf("Expected no cut, got %s", d.Cut)
	}
}

func TestScenarioPlaceAllPartsAutoAdvances(t *testing.T) {
	s, ft := newTestSequencer(t)
	ds := mustDefault(t)
	start := indexOf(t, ds, "pizza_reassembly")
	s.GoTo(start)

	var notes int
	s.AddListener(func(Descriptor) { notes++ })

	for i, p := range []string{"qTR", "qTL", "qBL", "qBR"} {
		if err := s.PlacePart(p); err != nil {
			t.Fatalf("place %s: %v", p, err)
		}
		if i < 3 && len(ft.calls) != 0 {
			t.Fatalf("Expected no timer before the last part, got %d", len(ft.calls))
		}
	}
	d := s.Current()
	if !reflect.DeepEqual(d.PlacedParts, []string{"qTR", "qTL", "qBL", "qBR"}) {
		t.Errorf("Expected all parts placed, got %v", d.PlacedParts)
	}
	if len(d.AvailableParts) != 0 {
		t.Errorf("Expected no available parts, got %v", d.AvailableParts)
	}
	if !strings.Contains(d.FooterText, "All parts are placed") {
		t.Errorf("Expected all-placed footer, got %q", d.FooterText)
	}
	if len(ft.calls) != 1 || ft.calls[0].d != DefaultAutoAdvance {
		t.Fatalf("Expected one timer of %v, got %+v", DefaultAutoAdvance, ft.calls)
	}
	if s.Index() != start {
		t.Fatalf("Expected no advance before the delay, got index %d", s.Index())
	}

	ft.Fire()
	if s.Index() != start+1 {
		t.Errorf("Expected index %d after the delay, got %d", start+1, s.Index())
	}
	if notes != 5 {
		t.Errorf("Expected 5 notifications (4 placements + advance), got %d", notes)
	}
}

func TestScenarioQuizGate(t *testing.T) {
	s, _ := newTestSequencer(t)
	ds := mustDefault(t)
	s.GoTo(indexOf(t, ds, "quiz_q2"))
	if got := s.Current().Quiz.Answer; got != "Whole" {
		t.Fatalf("Expected answer Whole, got %q", got)
	}
	if s.CanGoNext() {
		t.Error("Expected gate closed while pending")
	}

	if err := s.SelectQuizOption("Part"); err != nil {
		t.Fatalf("select Part: %v", err)
	}
	q := s.Current().Quiz
	if q.Evaluation != EvalWrong || q.Selection != "Part" || q.Feedback == "" {
		t.Errorf("Expected wrong evaluation with feedback, got %+v", q)
	}
	if s.CanGoNext() {
		t.Error("Expected gate closed after a wrong answer")
	}

	if err := s.SelectQuizOption("Whole"); err != nil {
		t.Fatalf("select Whole: %v", err)
	}
	d := s.Current()
	if d.Quiz.Evaluation != EvalRight {
		t.Errorf("Expected right, got %s", d.Quiz.Evaluation)
	}
	if !s.CanGoNext() {
		t.Error("Expected gate open after the right answer")
	}
	if d.FooterText != d.Quiz.FooterRight {
		t.Errorf("Expected footer %q, got %q", d.Quiz.FooterRight, d.FooterText)
	}

	if err := s.SelectQuizOption("Part"); !errors.Is(err, ErrQuizAnswered) {
		t.Errorf("Expected ErrQuizAnswered, got %v", err)
	}
	if s.Current().Quiz.Evaluation != EvalRight {
		t.Error("Expected evaluation to stay right")
	}
}

func TestScenarioPrevAtStartIsSilent(t *testing.T) {
	s, _ := newTestSequencer(t)
	notes := 0
	s.AddListener(func(Descriptor) { notes++ })
	rev := s.Revision()
	if s.Prev() {
		t.Error("Expected Prev at 0 to report false")
	}
	if s.Index() != 0 || notes != 0 || s.Revision() != rev {
		t.Errorf("Expected no change, got index=%d notes=%d", s.Index(), notes)
	}
}

func TestScenarioPlacePartOutsidePartsMode(t *testing.T) {
	s, _ := newTestSequencer(t)
	notes := 0
	s.AddListener(func(Descriptor) { notes++ })
	before := s.Current()
	if err := s.PlacePart("qTR"); !errors.Is(err, ErrNotPartsMode) {
		t.Fatalf("Expected ErrNotPartsMode, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Current()) || notes != 0 {
		t.Error("Expected state unchanged and no notification")
	}
}

func TestPlacePartUnavailable(t *testing.T) {
	s, _ := newTestSequencer(t)
	s.GoTo(indexOf(t, mustDefault(t), "pizza_reassembly"))
	if err := s.PlacePart("qTR"); err != nil {
		t.Fatal(err)
	}
	tests := []string{"qTR", "left", ""}
	for _, p := range tests {
		if err := s.PlacePart(p); !errors.Is(err, ErrPartUnavailable) {
			t.Errorf("part %q: Expected ErrPartUnavailable, got %v", p, err)
		}
	}
	if got := s.Current().FooterText; got != "Great! Place the remaining parts." {
		t.Errorf("Expected partial footer, got %q", got)
	}
}

func TestQuizErrors(t *testing.T) {
	s, _ := newTestSequencer(t)
	if err := s.SelectQuizOption("Whole"); !errors.Is(err, ErrNotQuizMode) {
		t.Errorf("Expected ErrNotQuizMode, got %v", err)
	}
	s.GoTo(indexOf(t, mustDefault(t), "quiz_q1"))
	if err := s.SelectQuizOption("Maybe"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Expected ErrUnknownOption, got %v", err)
	}
	if s.Current().Quiz.Evaluation != EvalPending {
		t.Error("Expected evaluation to stay pending")
	}
}

func TestManualNavigationCancelsAutoAdvance(t *testing.T) {
	s, ft := newTestSequencer(t)
	ds := mustDefault(t)
	start := indexOf(t, ds, "cheesecake_reassembly")
	s.GoTo(start)
	_ = s.PlacePart("left")
	_ = s.PlacePart("right")
	if len(ft.calls) != 1 {
		t.Fatalf("Expected a pending advance, got %d", len(ft.calls))
	}

	s.Next()
	if !ft.calls[0].stopped {
		t.Error("Expected navigation to stop the pending timer")
	}
	// A timer that fires anyway must not move the cursor a second time.
	ft.FireStale()
	if s.Index() != start+1 {
		t.Errorf("Expected index %d, got %d", start+1, s.Index())
	}
}

func TestAutoAdvanceDisabled(t *testing.T) {
	ft := &fakeTimer{}
	s := New(mustDefault(t), WithTimer(ft), WithAutoAdvance(0))
	s.GoTo(indexOf(t, mustDefault(t), "cheesecake_reassembly"))
	_ = s.PlacePart("left")
	_ = s.PlacePart("right")
	if len(ft.calls) != 0 {
		t.Errorf("Expected no timer, got %d", len(ft.calls))
	}
}

func TestIndexBoundsProperty(t *testing.T) {
	s, _ := newTestSequencer(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0:
			s.Next()
		case 1:
			s.Prev()
		case 2:
			s.GoTo(rng.Intn(s.Len()+10) - 5)
		}
		if idx := s.Index(); idx < 0 || idx > s.Len()-1 {
			t.Fatalf("index %d out of bounds after step %d", idx, i)
		}
	}
}

func TestPartConservationProperty(t *testing.T) {
	ds := mustDefault(t)
	for i, d := range ds {
		if d.ToolMode != ToolParts {
			continue
		}
		s := New(ds, WithTimer(&fakeTimer{}))
		s.GoTo(i)
		union := append(slices.Clone(d.AvailableParts), d.PlacedParts...)
		slices.Sort(union)
		placed := map[string]bool{}

		rng := rand.New(rand.NewSource(int64(i)))
		tokens := append(slices.Clone(union), "bogus")
		for step := 0; step < 50; step++ {
			p := tokens[rng.Intn(len(tokens))]
			if s.PlacePart(p) == nil {
				placed[p] = true
			}
			cur := s.Current()
			for _, a := range cur.AvailableParts {
				if slices.Contains(cur.PlacedParts, a) {
					t.Fatalf("%s: %q in both sets", d.ID, a)
				}
				if placed[a] {
					t.Fatalf("%s: %q available again after placement", d.ID, a)
				}
			}
			got := append(slices.Clone(cur.AvailableParts), cur.PlacedParts...)
			slices.Sort(got)
			if !reflect.DeepEqual(got, union) {
				t.Fatalf("%s: union changed: %v vs %v", d.ID, got, union)
			}
		}
	}
}

func TestCurrentIsIdempotent(t *testing.T) {
	s, _ := newTestSequencer(t)
	for i := 0; i < s.Len(); i++ {
		s.GoTo(i)
		a, b := s.Current(), s.Current()
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("scene %d: Expected equal snapshots", i)
		}
	}
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	s, _ := newTestSequencer(t)
	s.GoTo(indexOf(t, mustDefault(t), "pizza_reassembly"))
	d := s.Current()
	d.AvailableParts[0] = "mutated"
	if s.Current().AvailableParts[0] == "mutated" {
		t.Error("Expected Current to return a copy")
	}
}

func TestQuizGateProperty(t *testing.T) {
	ds := mustDefault(t)
	for i, d := range ds {
		if !d.IsQuiz() {
			continue
		}
		s := New(ds, WithTimer(&fakeTimer{}))
		s.GoTo(i)
		for _, opt := range d.Quiz.Options {
			err := s.SelectQuizOption(opt)
			if errors.Is(err, ErrQuizAnswered) {
				continue
			}
			right := s.Current().Quiz.Evaluation == EvalRight
			if s.CanGoNext() != right {
				t.Errorf("%s after %q: CanGoNext=%v, right=%v", d.ID, opt, s.CanGoNext(), right)
			}
		}
	}
}

func TestCheckJump(t *testing.T) {
	ds := mustDefault(t)
	q1 := indexOf(t, ds, "quiz_q1")
	s := New(ds, WithTimer(&fakeTimer{}))

	tests := []struct {
		name string
		to   int
		want error
	}{
		{"up to the quiz", q1, nil},
		{"past the quiz", q1 + 1, ErrQuizGate},
		{"end", s.Len() - 1, ErrQuizGate},
		{"out of range", s.Len(), ErrIndexRange},
		{"negative", -1, ErrIndexRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.CheckJump(tt.to); !errors.Is(err, tt.want) {
				t.Errorf("CheckJump(%d) = %v, want %v", tt.to, err, tt.want)
			}
		})
	}

	s.GoTo(q1)
	if err := s.CheckJump(0); err != nil {
		t.Errorf("Expected backward jump allowed, got %v", err)
	}
	if err := s.SelectQuizOption(ds[q1].Quiz.Answer); err != nil {
		t.Fatal(err)
	}
	if err := s.CheckJump(q1 + 1); err != nil {
		t.Errorf("Expected jump allowed after a right answer, got %v", err)
	}
	if err := s.CheckJump(s.Len() - 1); !errors.Is(err, ErrQuizGate) {
		t.Errorf("Expected later quizzes to stay gated, got %v", err)
	}
}

func TestResetRestoresAuthoredContent(t *testing.T) {
	s, _ := newTestSequencer(t)
	ds := mustDefault(t)
	i := indexOf(t, ds, "pizza_reassembly")
	s.GoTo(i)
	_ = s.PlacePart("qTR")
	s.Reset()
	if s.Index() != 0 || s.Reached() != 0 {
		t.Errorf("Expected index 0, got %d", s.Index())
	}
	d, _ := s.At(i)
	if len(d.AvailableParts) != 4 {
		t.Errorf("Expected authored parts restored, got %v", d.AvailableParts)
	}
}

func TestRestoreClampsAndTracksCompleted(t *testing.T) {
	s, _ := newTestSequencer(t)
	s.Restore(999)
	if s.Index() != s.Len()-1 {
		t.Errorf("Expected clamp to %d, got %d", s.Len()-1, s.Index())
	}
	s.Restore(-3)
	if s.Index() != 0 {
		t.Errorf("Expected clamp to 0, got %d", s.Index())
	}
	s.Restore(3)
	ids := s.CompletedIDs()
	if len(ids) != s.Len()-1 {
		t.Errorf("Expected completed ids up to the furthest reached scene, got %d", len(ids))
	}
}

func TestRemoveListener(t *testing.T) {
	s, _ := newTestSequencer(t)
	notes := 0
	id := s.AddListener(func(Descriptor) { notes++ })
	s.Next()
	s.RemoveListener(id)
	s.Next()
	if notes != 1 {
		t.Errorf("Expected 1 notification, got %d", notes)
	}
}

func TestListenerMayCallBack(t *testing.T) {
	s, _ := newTestSequencer(t)
	var seen []int
	s.AddListener(func(d Descriptor) {
		seen = append(seen, s.Index())
		if s.Index() == 1 {
			s.Next()
		}
	})
	s.Next()
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("Expected [1 2], got %v", seen)
	}
}
