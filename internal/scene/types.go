// internal/scene/types.go
//
// Scene descriptor model.
// Responsibilities:
//   - Typed enums for sprite, tool mode, cut geometry, food type, and quiz evaluation.
//   - Descriptor: everything needed to render one step of the activity.
//   - Deep copy helpers so snapshots never alias sequencer state.

package scene

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Sprite identifies the character shown in the left panel.
type Sprite string

const (
	SpriteNone          Sprite = ""
	SpriteCheesecakeBoy Sprite = "cheesecake_boy"
	SpriteCookieMan     Sprite = "cookie_man"
	SpritePizzaGirl     Sprite = "pizza_girl"
)

// ToolMode selects what the tool rail offers.
type ToolMode string

const (
	ToolNone   ToolMode = ""
	ToolSlicer ToolMode = "slicer"
	ToolParts  ToolMode = "parts"
	ToolQuiz   ToolMode = "quiz"
)

// FoodType selects the food graphic.
type FoodType string

const (
	FoodCheesecake FoodType = "cheesecake"
	FoodPizza      FoodType = "pizza"
	FoodCookieQuiz FoodType = "cookie-quiz"
)

// Interactive marks scenes with an in-canvas gesture.
type Interactive string

const (
	InteractiveNone     Interactive = ""
	InteractiveCounting Interactive = "counting"
)

// Cut is the cut-line geometry drawn over the food disk.
type Cut int

const (
	CutNone Cut = iota
	CutVertical
	CutHorizontal
	CutCross
)

func (c Cut) String() string {
	switch c {
	case CutNone:
		return "none"
	case CutVertical:
		return "vertical"
	case CutHorizontal:
		return "horizontal"
	case CutCross:
		return "cross"
	}
	return fmt.Sprintf("cut(%d)", int(c))
}

// UnmarshalYAML accepts the authored forms: false, true, "horizontal", "cross".
func (c *Cut) UnmarshalYAML(value *yaml.Node) error {
	switch value.ShortTag() {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*c = CutNone
		if b {
			*c = CutVertical
		}
		return nil
	case "!!null":
		*c = CutNone
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "", "none", "false":
		*c = CutNone
	case "true", "vertical":
		*c = CutVertical
	case "horizontal":
		*c = CutHorizontal
	case "cross":
		*c = CutCross
	default:
		return fmt.Errorf("line %d: unknown cut %q", value.Line, s)
	}
	return nil
}

// Evaluation is the state of a quiz answer.
type Evaluation string

const (
	EvalPending Evaluation = "pending"
	EvalRight   Evaluation = "right"
	EvalWrong   Evaluation = "wrong"
)

// Quiz is the question attached to a quiz-mode descriptor. Answer and the
// feedback/footer pairs are authored; Selection, Evaluation, and Feedback are
// the learner's progress.
type Quiz struct {
	Image      string     `yaml:"image"`
	Options    []string   `yaml:"options"`
	Selection  string     `yaml:"selection"`
	Evaluation Evaluation `yaml:"evaluation"`
	Feedback   string     `yaml:"feedback"`

	Answer        string `yaml:"answer"`
	FeedbackRight string `yaml:"feedback_right"`
	FeedbackWrong string `yaml:"feedback_wrong"`
	FooterRight   string `yaml:"footer_right"`
	FooterWrong   string `yaml:"footer_wrong"`
}

// TileStatus is the completion state shown by an order-status pip.
type TileStatus string

const (
	TilePending TileStatus = "pending"
	TileDone    TileStatus = "done"
)

// Tile is one food item on the order-status screen.
type Tile struct {
	FoodLabel string     `yaml:"food_label"`
	Status    TileStatus `yaml:"status"`
}

// Descriptor is one authored step of the activity.
type Descriptor struct {
	ID     string `yaml:"id"`
	Sprite Sprite `yaml:"sprite"`
	Speech string `yaml:"speech"`

	ShowToolPanel  bool     `yaml:"show_tool_panel"`
	ToolMode       ToolMode `yaml:"tool_mode"`
	ToolRailHeader string   `yaml:"tool_rail_header"`

	Cut            Cut         `yaml:"cut"`
	DimCanvas      bool        `yaml:"dim_canvas"`
	FoodType       FoodType    `yaml:"food_type"`
	Interactive    Interactive `yaml:"interactive"`
	ShowPartLabels bool        `yaml:"show_part_labels"`

	AvailableParts []string `yaml:"available_parts"`
	PlacedParts    []string `yaml:"placed_parts"`

	CanvasCaption   string `yaml:"canvas_caption"`
	FooterText      string `yaml:"footer_text"`
	FooterAllPlaced string `yaml:"footer_all_placed"`
	FooterPartial   string `yaml:"footer_partial"`

	Quiz *Quiz `yaml:"quiz"`

	ShowStartButton bool   `yaml:"show_start_button"`
	ShowCharacters  bool   `yaml:"show_characters"`
	ShowOrderStatus bool   `yaml:"show_order_status"`
	HeaderTitle     string `yaml:"header_title"`
	Tiles           []Tile `yaml:"tiles"`
}

// Layout is the screen branch a descriptor renders with.
type Layout int

const (
	LayoutScene Layout = iota
	LayoutIntro
	LayoutCharacters
	LayoutOrderStatus
)

func (l Layout) String() string {
	switch l {
	case LayoutIntro:
		return "intro"
	case LayoutCharacters:
		return "characters"
	case LayoutOrderStatus:
		return "order-status"
	}
	return "scene"
}

// Layout returns the screen branch for d. Validate guarantees at most one of
// the screen flags is set on authored content.
func (d Descriptor) Layout() Layout {
	switch {
	case d.ShowStartButton:
		return LayoutIntro
	case d.ShowCharacters:
		return LayoutCharacters
	case d.ShowOrderStatus:
		return LayoutOrderStatus
	}
	return LayoutScene
}

func (d Descriptor) screenFlags() int {
	n := 0
	for _, f := range []bool{d.ShowStartButton, d.ShowCharacters, d.ShowOrderStatus} {
		if f {
			n++
		}
	}
	return n
}

// AllPlaced reports whether a parts scene has nothing left to place.
func (d Descriptor) AllPlaced() bool {
	return d.ToolMode == ToolParts && len(d.AvailableParts) == 0
}

// IsQuiz reports whether d is a quiz question.
func (d Descriptor) IsQuiz() bool {
	return d.ToolMode == ToolQuiz && d.Quiz != nil
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.AvailableParts = slices.Clone(d.AvailableParts)
	out.PlacedParts = slices.Clone(d.PlacedParts)
	out.Tiles = slices.Clone(d.Tiles)
	if d.Quiz != nil {
		q := *d.Quiz
		q.Options = slices.Clone(d.Quiz.Options)
		out.Quiz = &q
	}
	return out
}

func cloneAll(ds []Descriptor) []Descriptor {
	out := make([]Descriptor, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}
