// internal/view/view.go
//
// Scene renderer: the component tree that maps a scene descriptor to markup.
// Responsibilities:
//   - Register every scene component into a ui.Runtime.
//   - Props: the descriptor plus navigation gates, localization, assets, and
//     transient gesture state owned by the activity layer.
//
// Render functions are pure over their props. Interactions are encoded as
// data-action / data-arg attributes; the activity layer dispatches them.

package view

import (
	"errors"
	"strconv"

	"github.com/robalobadob/wholepart/internal/content"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
)

// Component names.
const (
	Screen                   = "Screen"
	IntroScreen              = "IntroScreen"
	CharacterSelectionScreen = "CharacterSelectionScreen"
	OrderStatusScreen        = "OrderStatusScreen"
	StatusPip                = "StatusPip"
	LeftPanel                = "LeftPanel"
	SpeechBubble             = "SpeechBubble"
	CharacterSprite          = "CharacterSprite"
	RightRegion              = "RightRegion"
	SceneFrame               = "SceneFrame"
	CanvasArea               = "CanvasArea"
	FoodDisk                 = "FoodDisk"
	CookieGraphic            = "CookieGraphic"
	PartThumbnail            = "PartThumbnail"
	CanvasDimmingOverlay     = "CanvasDimmingOverlay"
	CountingLabels           = "CountingLabels"
	ToolRail                 = "ToolRail"
	QuizRail                 = "QuizRail"
	FeedbackCard             = "FeedbackCard"
	FooterBar                = "FooterBar"
	NavButton                = "NavButton"
	SceneProgressText        = "SceneProgressText"
)

// Action names carried in data-action.
const (
	ActNext       = "next"
	ActPrev       = "prev"
	ActGoTo       = "goto"
	ActStart      = "start"
	ActToolSelect = "tool-select"
	ActSlice      = "slice"
	ActCount      = "count"
	ActPlacePart  = "place-part"
	ActQuiz       = "quiz"
	ActRestart    = "restart"
	ActLang       = "lang"
)

// Quadrants is the counting order of the pizza quarters.
var Quadrants = []string{"qTR", "qTL", "qBL", "qBR"}

// Gesture is transient interaction state that is not part of the descriptor.
type Gesture struct {
	Armed   bool     // slicer tool selected
	Counted []string // quadrants counted so far, in tap order
	Hint    string   // short feedback line under the canvas
}

// Props is what the Screen root (and most children) render from.
type Props struct {
	Scene     scene.Descriptor
	Index     int
	Total     int
	CanGoPrev bool
	CanGoNext bool
	Loc       *content.Localizer
	Assets    *content.Assets
	Gesture   Gesture
	Languages []string
}

// Register adds every scene component to rt.
func Register(rt *ui.Runtime) error {
	return errors.Join(
		ui.Register(rt, Screen, renderScreen),
		ui.Register(rt, IntroScreen, renderIntro),
		ui.Register(rt, CharacterSelectionScreen, renderCharacterSelection),
		ui.Register(rt, OrderStatusScreen, renderOrderStatus),
		ui.Register(rt, StatusPip, renderStatusPip),
		ui.Register(rt, LeftPanel, renderLeftPanel),
		ui.Register(rt, SpeechBubble, renderSpeechBubble),
		ui.Register(rt, CharacterSprite, renderCharacterSprite),
		ui.Register(rt, RightRegion, renderRightRegion),
		ui.Register(rt, SceneFrame, renderSceneFrame),
		ui.Register(rt, CanvasArea, renderCanvasArea),
		ui.Register(rt, FoodDisk, renderFoodDisk),
		ui.Register(rt, CookieGraphic, renderCookieGraphic),
		ui.Register(rt, PartThumbnail, renderPartThumbnail),
		ui.Register(rt, CanvasDimmingOverlay, renderDimmingOverlay),
		ui.Register(rt, CountingLabels, renderCountingLabels),
		ui.Register(rt, ToolRail, renderToolRail),
		ui.Register(rt, QuizRail, renderQuizRail),
		ui.Register(rt, FeedbackCard, renderFeedbackCard),
		ui.Register(rt, FooterBar, renderFooterBar),
		ui.Register(rt, NavButton, renderNavButton),
		ui.Register(rt, SceneProgressText, renderSceneProgressText),
	)
}

// ---------------------------------------------------------------------------
// localization helpers

func (p Props) std(key string, params map[string]any) string {
	return text(p.Loc, "standard-ui", key, params)
}

func (p Props) msg(key string, params map[string]any) string {
	return text(p.Loc, "content-ui", key, params)
}

func text(loc *content.Localizer, domain, key string, params map[string]any) string {
	if loc == nil {
		return content.Missing(domain, key)
	}
	return loc.Text(domain, key, params)
}

// sceneText returns the translated override for an authored field of the
// current scene, or the authored text.
func (p Props) sceneText(field, authored string) string {
	if p.Loc == nil || p.Scene.ID == "" || authored == "" {
		return authored
	}
	if v, ok := p.Loc.Lookup("content-ui", "scenes."+p.Scene.ID+"."+field); ok {
		return v
	}
	return authored
}

// optional returns the localized key when it exists, else fallback.
func (p Props) optional(domain, key, fallback string) string {
	if p.Loc == nil {
		return fallback
	}
	if v, ok := p.Loc.Lookup(domain, key); ok {
		return v
	}
	return fallback
}

func action(name string) ui.Attr { return ui.Data("action", name) }

func actionArg(name, arg string) ui.Attrs {
	return ui.Attrs{ui.Data("action", name), ui.Data("arg", arg)}
}

func itoa(i int) string { return strconv.Itoa(i) }
