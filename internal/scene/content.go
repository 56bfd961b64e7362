// internal/scene/content.go
//
// Authored scene sequence.
// Responsibilities:
//   - Decode the descriptor list from YAML (embedded assets/scenes.yaml by default).
//   - Validate authored invariants: unique ids, one screen branch per descriptor,
//     disjoint part sets, well-formed quizzes.
//
// The default sequence is parsed once and cached; callers receive copies.

package scene

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/robalobadob/wholepart/assets"
	"gopkg.in/yaml.v3"
)

type document struct {
	Scenes []Descriptor `yaml:"scenes"`
}

// Load decodes and validates a scene sequence.
func Load(r io.Reader) ([]Descriptor, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	for i := range doc.Scenes {
		normalize(&doc.Scenes[i])
	}
	if err := Validate(doc.Scenes); err != nil {
		return nil, err
	}
	return doc.Scenes, nil
}

func normalize(d *Descriptor) {
	if d.FoodType == "" {
		d.FoodType = FoodCheesecake
		if d.Quiz != nil {
			d.FoodType = FoodCookieQuiz
		}
	}
	if q := d.Quiz; q != nil && q.Evaluation == "" {
		q.Evaluation = EvalPending
	}
}

var (
	defaultOnce   sync.Once
	defaultScenes []Descriptor
	defaultErr    error
)

// Default returns a copy of the embedded scene sequence.
func Default() ([]Descriptor, error) {
	defaultOnce.Do(func() {
		f, err := assets.FS.Open("scenes.yaml")
		if err != nil {
			defaultErr = err
			return
		}
		defer f.Close()
		defaultScenes, defaultErr = Load(f)
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return cloneAll(defaultScenes), nil
}

// Validate checks every descriptor and returns all violations joined.
func Validate(ds []Descriptor) error {
	if len(ds) == 0 {
		return errors.New("scene sequence is empty")
	}
	var errs []error
	seen := make(map[string]int, len(ds))
	for i, d := range ds {
		fail := func(format string, args ...any) {
			errs = append(errs, fmt.Errorf("scene %d (%s): %s", i, d.ID, fmt.Sprintf(format, args...)))
		}

		if d.ID == "" {
			fail("missing id")
		} else if j, dup := seen[d.ID]; dup {
			fail("id already used by scene %d", j)
		} else {
			seen[d.ID] = i
		}

		if n := d.screenFlags(); n > 1 {
			fail("%d screen modes set, want at most one", n)
		}

		for _, p := range d.AvailableParts {
			if slices.Contains(d.PlacedParts, p) {
				fail("part %q both available and placed", p)
			}
		}
		if hasDup(d.AvailableParts) || hasDup(d.PlacedParts) {
			fail("duplicate part token")
		}
		if d.ToolMode == ToolParts && len(d.AvailableParts)+len(d.PlacedParts) == 0 {
			fail("parts mode without parts")
		}

		switch d.ToolMode {
		case ToolNone, ToolSlicer, ToolParts:
		case ToolQuiz:
			if d.Quiz == nil {
				fail("quiz mode without quiz")
			}
		default:
			fail("unknown tool mode %q", d.ToolMode)
		}

		if q := d.Quiz; q != nil {
			if len(q.Options) < 2 {
				fail("quiz needs at least two options")
			}
			if !slices.Contains(q.Options, q.Answer) {
				fail("quiz answer %q is not an option", q.Answer)
			}
			if (q.Selection == "") != (q.Evaluation == EvalPending) {
				fail("quiz evaluation %q inconsistent with selection %q", q.Evaluation, q.Selection)
			}
		}

		if d.Interactive == InteractiveCounting && d.Cut != CutCross {
			fail("counting needs a cross cut")
		}
		if d.ShowOrderStatus && len(d.Tiles) == 0 {
			fail("order status without tiles")
		}
	}
	return errors.Join(errs...)
}

func hasDup(xs []string) bool {
	seen := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			return true
		}
		seen[x] = struct{}{}
	}
	return false
}
