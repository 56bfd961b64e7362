// internal/view/panel.go
//
// Left panel: the character and their speech.
// Responsibilities:
//   - LeftPanel, CharacterSprite, SpeechBubble.
//   - Highlight the key terms (whole, part) inside speech text.

package view

import (
	"strings"

	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
)

type spriteProps struct {
	Sprite scene.Sprite
	Src    string
	Alt    string
}

type speechProps struct {
	Text  string
	Whole string // localized word substituted for {whole}
	Parts string // localized word substituted for {parts}
}

func renderLeftPanel(c *ui.Ctx, p Props) *ui.Node {
	d := p.Scene
	var sprite, bubble *ui.Node
	if d.Sprite != scene.SpriteNone {
		sprite = c.Render(CharacterSprite, spriteProps{
			Sprite: d.Sprite,
			Src:    p.Assets.Path(string(d.Sprite)),
			Alt:    p.optional("content-ui", "characters."+string(d.Sprite), string(d.Sprite)),
		})
	}
	if speech := p.sceneText("speech", d.Speech); speech != "" {
		bubble = c.Render(SpeechBubble, speechProps{
			Text:  speech,
			Whole: p.msg("highlight.whole", nil),
			Parts: p.msg("highlight.parts", nil),
		})
	}
	return ui.El("div", ui.Class("left-panel"), bubble, sprite)
}

func renderCharacterSprite(c *ui.Ctx, sp spriteProps) *ui.Node {
	if sp.Src == "" {
		return ui.El("div", ui.Class("character-sprite-placeholder", "placeholder"),
			ui.Data("sprite", string(sp.Sprite)),
			ui.Text(sp.Alt),
		)
	}
	return ui.El("img", ui.Class("character-sprite"),
		ui.Data("sprite", string(sp.Sprite)),
		ui.A("src", sp.Src),
		ui.A("alt", sp.Alt),
	)
}

func renderSpeechBubble(c *ui.Ctx, sp speechProps) *ui.Node {
	return ui.El("div", ui.Class("speech-bubble"),
		ui.El("div", ui.Class("speech-content"), speechNodes(sp)),
		ui.El("div", ui.Class("speech-tail")),
	)
}

// speechNodes substitutes the {whole}/{parts} tokens with highlight spans and
// newlines with line breaks.
func speechNodes(sp speechProps) ui.Group {
	var out ui.Group
	for i, line := range strings.Split(sp.Text, "\n") {
		if i > 0 {
			out = append(out, ui.El("br"))
		}
		for line != "" {
			at, token := nextToken(line)
			if at < 0 {
				out = append(out, ui.Text(line))
				break
			}
			if at > 0 {
				out = append(out, ui.Text(line[:at]))
			}
			switch token {
			case "{whole}":
				out = append(out, ui.El("span", ui.Class("highlight-whole"), ui.Text(sp.Whole)))
			case "{parts}":
				out = append(out, ui.El("span", ui.Class("highlight-parts"), ui.Text(sp.Parts)))
			}
			line = line[at+len(token):]
		}
	}
	return out
}

func nextToken(s string) (int, string) {
	w := strings.Index(s, "{whole}")
	p := strings.Index(s, "{parts}")
	switch {
	case w < 0 && p < 0:
		return -1, ""
	case p < 0 || (w >= 0 && w < p):
		return w, "{whole}"
	}
	return p, "{parts}"
}
