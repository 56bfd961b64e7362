// tools.go
//
// Authoring commands.
//   - validate: check a scene file and render every scene in every language,
//     reporting untranslated text.
//   - render:   print the markup of one scene, for inspecting content changes.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robalobadob/wholepart/internal/content"
	"github.com/robalobadob/wholepart/internal/scene"
	"github.com/robalobadob/wholepart/internal/ui"
	"github.com/robalobadob/wholepart/internal/view"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the scene sequence and translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("scenes")
		return runValidate(cmd.OutOrStdout(), file, mustConfig().DefaultLang)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the markup of one scene",
	RunE: func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetInt("index")
		lang, _ := cmd.Flags().GetString("lang")
		if lang == "" {
			lang = mustConfig().DefaultLang
		}
		return runRender(cmd.OutOrStdout(), index, lang)
	},
}

func init() {
	validateCmd.Flags().String("scenes", "", "scene YAML file (default is the embedded sequence)")
	renderCmd.Flags().IntP("index", "i", 0, "scene index")
	renderCmd.Flags().StringP("lang", "l", "", "language tag")
	rootCmd.AddCommand(validateCmd, renderCmd)
}

func loadScenes(file string) ([]scene.Descriptor, error) {
	if file == "" {
		return scene.Default()
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scene.Load(f)
}

func runValidate(w io.Writer, file, defLang string) error {
	scenes, err := loadScenes(file)
	if err != nil {
		return err
	}
	catalogs, err := content.LoadDefault(defLang)
	if err != nil {
		return err
	}
	manifest, err := content.DefaultAssets()
	if err != nil {
		return err
	}

	rt := ui.New()
	if err := view.Register(rt); err != nil {
		return err
	}
	seq := scene.New(scenes)
	missing := 0
	for _, tag := range catalogs.Languages() {
		loc := catalogs.For(tag.String())
		for i := range scenes {
			seq.GoTo(i)
			out, err := rt.RenderString(view.Screen, sceneProps(seq, loc, manifest))
			if err != nil {
				return fmt.Errorf("render scene %d (%s): %w", i, scenes[i].ID, err)
			}
			if n := strings.Count(out, "[Missing:"); n > 0 {
				missing += n
				fmt.Fprintf(w, "%s: scene %d (%s): %d missing text(s)\n", tag, i, scenes[i].ID, n)
			}
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d missing text(s)", missing)
	}
	fmt.Fprintf(w, "ok: %d scenes, %d languages\n", len(scenes), len(catalogs.Languages()))
	return nil
}

func runRender(w io.Writer, index int, lang string) error {
	scenes, err := scene.Default()
	if err != nil {
		return err
	}
	catalogs, err := content.LoadDefault("en")
	if err != nil {
		return err
	}
	manifest, err := content.DefaultAssets()
	if err != nil {
		return err
	}
	seq := scene.New(scenes)
	if !seq.GoTo(index) {
		return fmt.Errorf("scene index %d out of range [0,%d)", index, seq.Len())
	}
	rt := ui.New()
	if err := view.Register(rt); err != nil {
		return err
	}
	out, err := rt.RenderString(view.Screen, sceneProps(seq, catalogs.For(lang), manifest))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func sceneProps(seq *scene.Sequencer, loc *content.Localizer, manifest *content.Assets) view.Props {
	return view.Props{
		Scene:     seq.Current(),
		Index:     seq.Index(),
		Total:     seq.Len(),
		CanGoPrev: seq.CanGoPrev(),
		CanGoNext: seq.CanGoNext(),
		Loc:       loc,
		Assets:    manifest,
	}
}
