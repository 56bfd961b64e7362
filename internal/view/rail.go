// internal/view/rail.go
//
// Tool rail shown beside the canvas.
// Responsibilities:
//   - ToolRail in slicer and parts mode, PartThumbnail.
//   - QuizRail with its options and the FeedbackCard.

package view

import (
	"slices"

	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
)

func railHeader(p Props) *ui.Node {
	h := p.sceneText("tool_rail_header", p.Scene.ToolRailHeader)
	return ui.When(h != "", ui.El("div", ui.Class("tool-rail-header"), ui.Text(h)))
}

func renderToolRail(c *ui.Ctx, p Props) *ui.Node {
	d := p.Scene
	var body ui.Group
	switch d.ToolMode {
	case scene.ToolSlicer:
		body = ui.Group{slicerTool(p)}
	case scene.ToolParts:
		placed := d.PlacedParts
		body = ui.Each(PartTokens(d), func(_ int, tok string) *ui.Node {
			return c.RenderKeyed(PartThumbnail, tok, thumbProps{
				Token:  tok,
				Src:    p.Assets.Path(tok),
				Placed: slices.Contains(placed, tok),
				Check:  p.Assets.Icon("check"),
			})
		})
	}
	return ui.El("aside", ui.Class("tool-rail", string(d.ToolMode)),
		railHeader(p),
		ui.El("div", ui.Class("tool-rail-items"), body),
	)
}

func slicerTool(p Props) *ui.Node {
	d := p.Scene
	name := p.msg("slicer.tool_name", nil)
	var icon *ui.Node
	if src := p.Assets.Path("slicer"); src != "" {
		icon = ui.El("img", ui.A("src", src), ui.A("alt", ""))
	} else {
		icon = ui.Text(p.Assets.Icon("slicer"))
	}
	return ui.El("button",
		ui.Class("tool-item", "slicer", armedClass(p.Gesture.Armed)),
		action(ActToolSelect),
		ui.Bool("disabled", d.Cut != scene.CutNone),
		ui.A("aria-pressed", boolString(p.Gesture.Armed)),
		ui.A("aria-label", name),
		icon,
		ui.El("span", ui.Class("tool-name"), ui.Text(name)),
	)
}

func armedClass(on bool) string {
	if on {
		return "armed"
	}
	return ""
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

type thumbProps struct {
	Token  string
	Src    string
	Placed bool
	Check  string
}

// renderPartThumbnail is a clickable part until it is placed, then a
// checkmarked indicator.
func renderPartThumbnail(c *ui.Ctx, tp thumbProps) *ui.Node {
	var img *ui.Node
	if tp.Src != "" {
		img = ui.El("img", ui.A("src", tp.Src), ui.A("alt", tp.Token))
	} else {
		img = ui.Placeholder("part", tp.Token)
	}
	if tp.Placed {
		return ui.El("div", ui.Class("part-thumbnail", "placed"),
			ui.Data("part", tp.Token),
			img,
			ui.El("span", ui.Class("placed-check"), ui.Text(tp.Check)),
		)
	}
	return ui.El("button", ui.Class("part-thumbnail"),
		actionArg(ActPlacePart, tp.Token),
		ui.Data("part", tp.Token),
		img,
	)
}

func renderQuizRail(c *ui.Ctx, p Props) *ui.Node {
	q := p.Scene.Quiz
	answered := q.Evaluation == scene.EvalRight
	var feedback *ui.Node
	if q.Evaluation != scene.EvalPending && q.Evaluation != "" && q.Feedback != "" {
		feedback = c.Render(FeedbackCard, feedbackProps{
			Evaluation: q.Evaluation,
			Text:       p.sceneText("feedback_"+string(q.Evaluation), q.Feedback),
			Icon:       feedbackIcon(p, q.Evaluation),
		})
	}
	return ui.El("aside", ui.Class("tool-rail", "quiz-rail"),
		railHeader(p),
		ui.El("div", ui.Class("quiz-options"), ui.A("role", "group"),
			ui.Each(q.Options, func(_ int, opt string) *ui.Node {
				return ui.El("button",
					ui.Class("quiz-option", optionClass(q, opt)),
					actionArg(ActQuiz, opt),
					ui.Bool("disabled", answered),
					ui.Text(p.optional("content-ui", "quiz.options."+opt, opt)),
				)
			}),
		),
		feedback,
	)
}

// optionClass is neutral until the option is chosen.
func optionClass(q *scene.Quiz, opt string) string {
	if q.Selection != opt {
		return "neutral"
	}
	switch q.Evaluation {
	case scene.EvalRight:
		return "correct"
	case scene.EvalWrong:
		return "wrong"
	}
	return "neutral"
}

func feedbackIcon(p Props, e scene.Evaluation) string {
	if e == scene.EvalRight {
		return p.Assets.Icon("check")
	}
	return p.Assets.Icon("cross")
}

type feedbackProps struct {
	Evaluation scene.Evaluation
	Text       string
	Icon       string
}

func renderFeedbackCard(c *ui.Ctx, fp feedbackProps) *ui.Node {
	return ui.El("div", ui.Class("feedback-card", string(fp.Evaluation)),
		ui.A("role", "status"),
		ui.When(fp.Icon != "", ui.El("span", ui.Class("feedback-icon"), ui.Text(fp.Icon))),
		ui.El("p", ui.Class("feedback-text"), ui.Text(fp.Text)),
	)
}
