// internal/activity/gesture.go
//
// Learner actions.
// Responsibilities:
//   - Decode an Action and apply it on the session loop.
//   - Navigation honouring the quiz gate, including jumps.
//   - Slicer arming, counting taps with a delayed advance, part placement,
//     quiz answers, restart, language switch, arrow keys.

package activity

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/robalobadob/wholepart/internal/content"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/view"
)

// ActKey carries a keyboard key name in Arg.
const ActKey = "key"

var (
	ErrUnknownAction = errors.New("activity: unknown action")
	ErrBadArg        = errors.New("activity: bad action argument")
)

// Action is one learner interaction, as sent by the page.
type Action struct {
	Name string `json:"action"`
	Arg  string `json:"arg,omitempty"`
}

type gestureState struct {
	armed   bool
	counted []string
	hintKey string // content-ui key
}

func (g gestureState) view(loc *content.Localizer) view.Gesture {
	out := view.Gesture{Armed: g.armed, Counted: slices.Clone(g.counted)}
	if g.hintKey != "" && loc != nil {
		out.Hint = loc.Text("content-ui", g.hintKey, nil)
	}
	return out
}

func (s *Session) apply(a Action) error {
	switch a.Name {
	case view.ActNext:
		s.next()
	case view.ActPrev:
		s.seq.Prev()
	case view.ActGoTo:
		i, err := strconv.Atoi(a.Arg)
		if err != nil {
			return fmt.Errorf("%w: scene %q", ErrBadArg, a.Arg)
		}
		switch err := s.seq.CheckJump(i); {
		case errors.Is(err, scene.ErrIndexRange):
			return fmt.Errorf("%w: scene %q", ErrBadArg, a.Arg)
		case err != nil:
			return err
		}
		s.seq.GoTo(i)
	case view.ActStart:
		if s.seq.Current().Layout() == scene.LayoutIntro {
			s.seq.Next()
		}
	case view.ActToolSelect:
		s.selectTool()
	case view.ActSlice:
		s.slice()
	case view.ActCount:
		return s.count(a.Arg)
	case view.ActPlacePart:
		return s.seq.PlacePart(a.Arg)
	case view.ActQuiz:
		return s.seq.SelectQuizOption(a.Arg)
	case view.ActRestart:
		s.seq.Reset()
	case view.ActLang:
		return s.setLang(a.Arg)
	case ActKey:
		switch a.Arg {
		case "ArrowRight":
			s.next()
		case "ArrowLeft":
			s.seq.Prev()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Name)
	}
	return nil
}

// next advances on behalf of the learner, honouring the quiz gate.
func (s *Session) next() {
	if s.seq.CanGoNext() {
		s.seq.Next()
	}
}

func (s *Session) selectTool() {
	d := s.seq.Current()
	if d.ToolMode != scene.ToolSlicer || d.Cut != scene.CutNone {
		return
	}
	s.gesture.armed = true
	s.gesture.hintKey = "slicer.armed"
	s.rerender()
}

// slice cuts the food when the slicer is armed; otherwise it nudges the
// learner towards the tool.
func (s *Session) slice() {
	d := s.seq.Current()
	if d.ToolMode != scene.ToolSlicer || d.Cut != scene.CutNone {
		return
	}
	if !s.gesture.armed {
		s.gesture.hintKey = "slicer.feedback_error"
		s.rerender()
		return
	}
	s.gesture.armed = false
	s.gesture.hintKey = ""
	s.rerender()
	s.seq.Next()
}

// count records one tap on a part. Each part counts once; when all parts are
// counted the scene advances after the auto-advance delay.
func (s *Session) count(part string) error {
	d := s.seq.Current()
	if d.Interactive != scene.InteractiveCounting {
		return nil
	}
	tokens := view.PartTokens(d)
	if !slices.Contains(tokens, part) {
		return fmt.Errorf("%w: part %q", ErrBadArg, part)
	}
	if slices.Contains(s.gesture.counted, part) {
		return nil
	}
	s.gesture.counted = append(s.gesture.counted, part)
	s.rerender()
	if len(s.gesture.counted) == len(tokens) {
		s.scheduleCountAdvance()
	}
	return nil
}

func (s *Session) scheduleCountAdvance() {
	if s.autoAdvance <= 0 {
		return
	}
	s.cancelCount()
	epoch, index := s.countEpoch, s.seq.Index()
	s.countTimer = s.timer.AfterFunc(s.autoAdvance, func() {
		if s.countEpoch != epoch || s.seq.Index() != index {
			return
		}
		s.countTimer = nil
		s.seq.Next()
	})
}

func (s *Session) cancelCount() {
	s.countEpoch++
	if s.countTimer != nil {
		s.countTimer.Stop()
		s.countTimer = nil
	}
}

func (s *Session) setLang(lang string) error {
	if !slices.Contains(s.languages, lang) {
		return fmt.Errorf("%w: language %q", ErrBadArg, lang)
	}
	if lang == s.lang {
		return nil
	}
	s.lang = lang
	s.loc = s.content.For(lang)
	s.rerender()
	return nil
}
