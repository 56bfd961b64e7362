// internal/view/screen.go
//
// Screen: the root of every scene render.
// Responsibilities:
//   - Pick one layout per descriptor (intro, characters, order status, scene).
//   - Intro, CharacterSelection, OrderStatus and the language switch.

package view

import (
	"strings"

	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
)

// renderScreen picks exactly one layout per descriptor.
func renderScreen(c *ui.Ctx, p Props) *ui.Node {
	d := p.Scene
	layout := d.Layout()
	var body *ui.Node
	class := ""
	switch layout {
	case scene.LayoutIntro:
		class = "intro-screen"
		body = c.Render(IntroScreen, p)
	case scene.LayoutCharacters:
		class = "character-screen"
		body = c.Render(CharacterSelectionScreen, p)
	case scene.LayoutOrderStatus:
		class = "character-screen"
		body = c.Render(OrderStatusScreen, p)
	default:
		body = ui.Fragment(
			c.Render(LeftPanel, p),
			c.Render(RightRegion, p),
		)
	}
	return ui.El("div",
		ui.Class("screen", class),
		ui.Data("layout", layout.String()),
		ui.Data("scene", d.ID),
		ui.Data("index", itoa(p.Index)),
		languageSwitch(p),
		body,
	)
}

func languageSwitch(p Props) *ui.Node {
	if len(p.Languages) < 2 {
		return nil
	}
	current := ""
	if p.Loc != nil {
		current = p.Loc.Tag().String()
	}
	return ui.El("nav",
		ui.Class("lang-switch"),
		ui.A("aria-label", p.std("labels.language", nil)),
		ui.Each(p.Languages, func(_ int, lang string) *ui.Node {
			return ui.El("button",
				ui.Class("lang-option", activeClass(lang == current)),
				actionArg(ActLang, lang),
				ui.Text(strings.ToUpper(lang)),
			)
		}),
	)
}

func activeClass(on bool) string {
	if on {
		return "active"
	}
	return ""
}

func renderIntro(c *ui.Ctx, p Props) *ui.Node {
	return ui.El("div", ui.Class("intro-screen-content"),
		ui.El("h1", ui.Class("app-title"), ui.Text(p.msg("intro.title", nil))),
		ui.El("div", ui.Class("intro-layout"),
			ui.El("div", ui.Class("intro-canvas"),
				ui.El("div", ui.Class("canvas-placeholder")),
			),
			ui.El("div", ui.Class("intro-text"),
				ui.El("div", ui.Class("intro-speech"), lines(p.sceneText("speech", p.Scene.Speech))),
				ui.El("button", ui.Class("start-button"), action(ActStart), ui.Text(p.std("buttons.start", nil))),
			),
		),
	)
}

type castMember struct {
	sprite scene.Sprite
	food   string
}

// characterCast is the fixed trio shown on the character screen.
var characterCast = []castMember{
	{scene.SpriteCheesecakeBoy, "cheesecake"},
	{scene.SpritePizzaGirl, "pizza"},
	{scene.SpriteCookieMan, "cookie"},
}

func renderCharacterSelection(c *ui.Ctx, p Props) *ui.Node {
	return ui.El("div", ui.Class("character-screen-content"),
		ui.El("h2", ui.Class("character-title"), ui.Text(p.sceneText("speech", p.Scene.Speech))),
		ui.El("div", ui.Class("characters-container"),
			ui.Each(characterCast, func(_ int, ch castMember) *ui.Node {
				return ui.El("div", ui.Class("character-item"),
					ui.El("div", ui.Class("character-circle"),
						ui.El("span", ui.Class("character-label"), ui.Text(p.msg("food."+ch.food, nil))),
					),
					c.RenderKeyed(CharacterSprite, string(ch.sprite), spriteProps{
						Sprite: ch.sprite,
						Src:    p.Assets.Path(string(ch.sprite)),
						Alt:    p.optional("content-ui", "characters."+string(ch.sprite), string(ch.sprite)),
					}),
				)
			}),
		),
		characterFooter(p),
	)
}

func characterFooter(p Props) *ui.Node {
	return ui.El("div", ui.Class("character-footer"),
		ui.El("span", ui.Class("footer-text"), ui.Text(p.sceneText("footer", p.Scene.FooterText))),
		ui.El("button", ui.Class("nav-arrow"),
			action(ActNext),
			ui.Bool("disabled", !p.CanGoNext),
			ui.A("aria-label", p.std("accessibility.next_scene", nil)),
			ui.Text("▶"),
		),
	)
}

func renderOrderStatus(c *ui.Ctx, p Props) *ui.Node {
	return ui.El("div", ui.Class("character-screen-content", "order-status"),
		ui.El("h2", ui.Class("character-title"), ui.Text(p.sceneText("header_title", p.Scene.HeaderTitle))),
		ui.El("div", ui.Class("characters-container"),
			ui.Each(p.Scene.Tiles, func(i int, t scene.Tile) *ui.Node {
				return ui.El("div", ui.Class("character-item"), ui.Data("status", string(t.Status)),
					ui.El("div", ui.Class("character-circle"),
						ui.El("span", ui.Class("character-label"),
							ui.Text(p.optional("content-ui", "food."+strings.ToLower(t.FoodLabel), t.FoodLabel))),
					),
					c.RenderKeyed(StatusPip, itoa(i), t.Status),
				)
			}),
		),
		characterFooter(p),
	)
}

func renderStatusPip(c *ui.Ctx, status scene.TileStatus) *ui.Node {
	if status == "" {
		status = scene.TilePending
	}
	return ui.El("div", ui.Class("status-pip", string(status)),
		ui.When(status == scene.TileDone, ui.El("span", ui.Class("check-mark"), ui.Text("✓"))),
	)
}

// lines turns newline-separated text into text runs separated by <br>.
func lines(s string) ui.Group {
	var out ui.Group
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, ui.El("br"))
		}
		if line != "" {
			out = append(out, ui.Text(line))
		}
	}
	return out
}
