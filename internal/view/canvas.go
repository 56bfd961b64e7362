// internal/view/canvas.go
//
// Right region and the food canvas.
// Responsibilities:
//   - RightRegion, SceneFrame, CanvasArea, FoodDisk with its cut lines.
//   - CookieGraphic, DimmingOverlay, CountingLabels.
//   - PartTokens: the part names a descriptor's cut produces.

package view

import (
	"slices"

	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
)

// Halves are the cheesecake parts left and right of a vertical cut.
var Halves = []string{"left", "right"}

// PartTokens lists the parts a disk is divided into, in label order.
func PartTokens(d scene.Descriptor) []string {
	switch {
	case d.FoodType == scene.FoodPizza && d.Cut == scene.CutCross:
		return Quadrants
	case d.FoodType == scene.FoodCheesecake && d.Cut == scene.CutVertical:
		return Halves
	case len(d.AvailableParts)+len(d.PlacedParts) > 0:
		return append(slices.Clone(d.PlacedParts), d.AvailableParts...)
	}
	return nil
}

func renderRightRegion(c *ui.Ctx, p Props) *ui.Node {
	return ui.El("div", ui.Class("right-region"),
		c.Render(SceneFrame, p),
		c.Render(FooterBar, p),
	)
}

func renderSceneFrame(c *ui.Ctx, p Props) *ui.Node {
	d := p.Scene
	var rail *ui.Node
	interior := "no-rail"
	if d.ShowToolPanel {
		interior = "with-rail"
		if d.IsQuiz() {
			rail = c.Render(QuizRail, p)
		} else {
			rail = c.Render(ToolRail, p)
		}
	}
	return ui.El("div", ui.Class("scene-frame"),
		ui.El("div", ui.Class("scene-frame-interior", interior),
			c.Render(CanvasArea, p),
			rail,
		),
	)
}

func renderCanvasArea(c *ui.Ctx, p Props) *ui.Node {
	d := p.Scene
	var graphic *ui.Node
	if d.FoodType == scene.FoodCookieQuiz && d.Quiz != nil {
		graphic = c.RenderKeyed(CookieGraphic, d.Quiz.Image, cookieProps{
			Image: d.Quiz.Image,
			Src:   p.Assets.Path(d.Quiz.Image),
			Alt:   p.msg("food.cookie", nil),
		})
	} else {
		graphic = c.Render(FoodDisk, p)
	}
	caption := p.sceneText("canvas_caption", d.CanvasCaption)
	return ui.El("div", ui.Class("canvas-area"),
		ui.El("div", ui.Class("canvas-stage"), graphic),
		ui.When(caption != "", ui.El("p", ui.Class("canvas-caption"), ui.Text(caption))),
		ui.When(p.Gesture.Hint != "", ui.El("p", ui.Class("canvas-hint"), ui.A("role", "status"), ui.Text(p.Gesture.Hint))),
	)
}

// renderFoodDisk draws the food with its cut lines, part labels and any
// gesture targets. Geometry depends on (food type, cut).
func renderFoodDisk(c *ui.Ctx, p Props) *ui.Node {
	d := p.Scene
	tokens := PartTokens(d)

	disk := ui.El("div",
		ui.Class("food-disk", string(d.FoodType), "cut-"+d.Cut.String()),
		ui.A("role", "img"),
		ui.A("aria-label", p.optional("content-ui", "food."+string(d.FoodType), string(d.FoodType))),
		cutLines(d),
		ui.When(d.ToolMode == scene.ToolParts, placedRings(d)),
		ui.When(d.ShowPartLabels, partLabels(p, tokens)),
	)
	if d.ToolMode == scene.ToolSlicer && d.Cut == scene.CutNone {
		disk.Attrs = append(disk.Attrs, ui.Data("action", ActSlice), ui.A("role", "button"))
	}

	var overlay, counting *ui.Node
	if d.DimCanvas {
		overlay = c.Render(CanvasDimmingOverlay, dimProps{
			Food:     d.FoodType,
			Unplaced: d.AvailableParts,
		})
	}
	if d.Interactive == scene.InteractiveCounting {
		counting = c.Render(CountingLabels, countProps{Props: p, Tokens: tokens})
	}
	return ui.El("div", ui.Class("food-disk-wrap"), disk, overlay, counting)
}

func cutLines(d scene.Descriptor) ui.Group {
	switch d.Cut {
	case scene.CutVertical:
		return ui.Group{ui.El("div", ui.Class("cut-line", "vertical"))}
	case scene.CutHorizontal:
		return ui.Group{ui.El("div", ui.Class("cut-line", "horizontal"))}
	case scene.CutCross:
		return ui.Group{
			ui.El("div", ui.Class("cut-line", "horizontal", "pizza-cross")),
			ui.El("div", ui.Class("cut-line", "vertical", "pizza-cross")),
		}
	}
	return nil
}

func placedRings(d scene.Descriptor) *ui.Node {
	return ui.Fragment(ui.Each(d.PlacedParts, func(_ int, tok string) *ui.Node {
		return ui.El("div", ui.Class("placed-ring", "part-"+tok), ui.Data("part", tok))
	})...)
}

func partLabels(p Props, tokens []string) *ui.Node {
	return ui.Fragment(ui.Each(tokens, func(i int, tok string) *ui.Node {
		return ui.El("span", ui.Class("part-label", "part-"+tok),
			ui.Text(p.std("labels.part", map[string]any{"n": i + 1})))
	})...)
}

type cookieProps struct {
	Image string
	Src   string
	Alt   string
}

func renderCookieGraphic(c *ui.Ctx, cp cookieProps) *ui.Node {
	if cp.Src == "" {
		return ui.Placeholder("cookie", cp.Image)
	}
	return ui.El("img", ui.Class("cookie-graphic", cp.Image),
		ui.A("src", cp.Src),
		ui.A("alt", cp.Alt),
	)
}

type dimProps struct {
	Food     scene.FoodType
	Unplaced []string
}

// renderDimmingOverlay masks every part that has not been placed yet.
func renderDimmingOverlay(c *ui.Ctx, dp dimProps) *ui.Node {
	return ui.El("div", ui.Class("canvas-dimming-overlay", string(dp.Food)),
		ui.A("aria-hidden", "true"),
		ui.Each(dp.Unplaced, func(_ int, tok string) *ui.Node {
			return ui.El("div", ui.Class("dim-mask", "part-"+tok), ui.Data("part", tok))
		}),
	)
}

type countProps struct {
	Props
	Tokens []string
}

// renderCountingLabels draws one tap zone per part. Counted zones show their
// ordinal in tap order.
func renderCountingLabels(c *ui.Ctx, cp countProps) *ui.Node {
	counted := cp.Gesture.Counted
	n := len(counted)
	status := cp.std("labels.parts_counted", map[string]any{"count": n})
	if n > 0 && n == len(cp.Tokens) {
		status = cp.msg("counting.all_counted", nil)
	}
	return ui.El("div", ui.Class("counting-labels"),
		ui.Each(cp.Tokens, func(_ int, tok string) *ui.Node {
			at := slices.Index(counted, tok)
			if at >= 0 {
				return ui.El("div", ui.Class("count-zone", "counted", "part-"+tok),
					ui.Data("part", tok),
					ui.El("span", ui.Class("count-badge"), ui.Text(itoa(at+1))),
				)
			}
			return ui.El("button", ui.Class("count-zone", "part-"+tok),
				actionArg(ActCount, tok),
				ui.A("aria-label", tok),
			)
		}),
		ui.El("p", ui.Class("count-status"), ui.A("aria-live", "polite"), ui.Text(status)),
	)
}
