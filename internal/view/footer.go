// internal/view/footer.go
//
// Footer bar under every scene.
// Responsibilities:
//   - Footer text, prev/next/restart buttons gated by the sequencer.
//   - SceneProgressText ("Scene N of M").

package view

import (
	"strings"

	"github.com/robalobadob/wholepart/internal/ui"
)

type navProps struct {
	Variant string // prev, next, restart
	Action  string
	Enabled bool
	Label   string
	Glyph   string
}

func renderFooterBar(c *ui.Ctx, p Props) *ui.Node {
	last := p.Total > 0 && p.Index == p.Total-1

	prev := c.RenderKeyed(NavButton, "prev", navProps{
		Variant: "prev",
		Action:  ActPrev,
		Enabled: p.CanGoPrev,
		Label:   p.std("accessibility.previous_scene", nil),
		Glyph:   "◀",
	})
	var next *ui.Node
	if last {
		next = c.RenderKeyed(NavButton, "restart", navProps{
			Variant: "restart",
			Action:  ActRestart,
			Enabled: true,
			Label:   p.std("buttons.restart", nil),
			Glyph:   p.std("buttons.restart", nil),
		})
	} else {
		next = c.RenderKeyed(NavButton, "next", navProps{
			Variant: "next",
			Action:  ActNext,
			Enabled: p.CanGoNext,
			Label:   p.std("accessibility.next_scene", nil),
			Glyph:   "▶",
		})
	}

	progress := p.std("labels.progress", map[string]any{"current": p.Index + 1, "total": p.Total})
	return ui.El("footer", ui.Class("footer-bar"),
		prev,
		ui.El("div", ui.Class("footer-center"),
			c.Render(SceneProgressText, p.Scene.FooterText),
			ui.El("span", ui.Class("scene-progress-label"), ui.Text(progress)),
		),
		next,
	)
}

func renderNavButton(c *ui.Ctx, np navProps) *ui.Node {
	return ui.El("button",
		ui.Class("nav-button", np.Variant),
		action(np.Action),
		ui.Bool("disabled", !np.Enabled),
		ui.A("aria-label", np.Label),
		ui.Text(np.Glyph),
	)
}

// renderSceneProgressText wraps every ▶ in the footer text in an icon span.
func renderSceneProgressText(c *ui.Ctx, text string) *ui.Node {
	var out ui.Group
	for i, run := range strings.Split(text, "▶") {
		if i > 0 {
			out = append(out, ui.El("span", ui.Class("scene-progress-icon"), ui.Text("▶")))
		}
		if run != "" {
			out = append(out, ui.Text(run))
		}
	}
	return ui.El("p", ui.Class("scene-progress-text"), ui.A("aria-live", "polite"), out)
}
