package scene

import (
	"strings"
	"testing"
)

func TestCutDecoding(t *testing.T) {
	tests := []struct {
		yaml string
		want Cut
	}{
		{"cut: false", CutNone},
		{"cut: true", CutVertical},
		{"cut: horizontal", CutHorizontal},
		{"cut: cross", CutCross},
		{"cut: null", CutNone},
		{"speech: hi", CutNone},
	}
	for _, tt := range tests {
		src := "scenes:\n  - id: a\n    " + tt.yaml + "\n"
		ds, err := Load(strings.NewReader(src))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.yaml, err)
			continue
		}
		if ds[0].Cut != tt.want {
			t.Errorf("%s: Expected %s, got %s", tt.yaml, tt.want, ds[0].Cut)
		}
	}
}

func TestLoadRejectsBadCut(t *testing.T) {
	_, err := Load(strings.NewReader("scenes:\n  - id: a\n    cut: diagonal\n"))
	if err == nil || !strings.Contains(err.Error(), "diagonal") {
		t.Errorf("Expected unknown cut error, got %v", err)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(strings.NewReader("scenes:\n  - id: a\n    colour: red\n"))
	if err == nil {
		t.Error("Expected unknown field error")
	}
}

func TestLoadDefaultsFoodTypeAndEvaluation(t *testing.T) {
	src := `
scenes:
  - id: a
  - id: q
    tool_mode: quiz
    quiz:
      options: [Whole, Part]
      answer: Whole
`
	ds, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds[0].FoodType != FoodCheesecake {
		t.Errorf("Expected cheesecake, got %q", ds[0].FoodType)
	}
	if ds[1].FoodType != FoodCookieQuiz || ds[1].Quiz.Evaluation != EvalPending {
		t.Errorf("Expected cookie quiz pending, got %q %q", ds[1].FoodType, ds[1].Quiz.Evaluation)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ds   []Descriptor
		want string
	}{
		{"empty", nil, "empty"},
		{"missing id", []Descriptor{{}}, "missing id"},
		{"duplicate id", []Descriptor{{ID: "a"}, {ID: "a"}}, "already used"},
		{"two screens", []Descriptor{{ID: "a", ShowStartButton: true, ShowCharacters: true}}, "screen modes"},
		{"overlapping parts", []Descriptor{{ID: "a", ToolMode: ToolParts, AvailableParts: []string{"x"}, PlacedParts: []string{"x"}}}, "both available and placed"},
		{"parts without parts", []Descriptor{{ID: "a", ToolMode: ToolParts}}, "without parts"},
		{"quiz without quiz", []Descriptor{{ID: "a", ToolMode: ToolQuiz}}, "without quiz"},
		{"bad answer", []Descriptor{{ID: "a", ToolMode: ToolQuiz, Quiz: &Quiz{Options: []string{"A", "B"}, Answer: "C", Evaluation: EvalPending}}}, "not an option"},
		{"inconsistent quiz", []Descriptor{{ID: "a", ToolMode: ToolQuiz, Quiz: &Quiz{Options: []string{"A", "B"}, Answer: "A", Evaluation: EvalRight}}}, "inconsistent"},
		{"counting without cross", []Descriptor{{ID: "a", Interactive: InteractiveCounting}}, "cross cut"},
		{"order status without tiles", []Descriptor{{ID: "a", ShowOrderStatus: true}}, "without tiles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ds)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLayoutBranches(t *testing.T) {
	ds := mustDefault(t)
	counts := map[Layout]int{}
	for _, d := range ds {
		counts[d.Layout()]++
	}
	if counts[LayoutIntro] != 1 || counts[LayoutCharacters] != 1 || counts[LayoutOrderStatus] != 3 {
		t.Errorf("unexpected layout counts %v", counts)
	}
}
