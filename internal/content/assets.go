// internal/content/assets.go
//
// Asset path resolution from assets/manifest.yaml.
// Unknown keys resolve to "" and the renderer draws a placeholder instead.

package content

import (
	"fmt"
	"io/fs"

	"github.com/robalobadob/wholepart/assets"
	"gopkg.in/yaml.v3"
)

// Assets maps asset keys to public paths.
type Assets struct {
	Images   map[string]string `yaml:"images"`
	Quarters map[string]string `yaml:"quarters"`
	Halves   map[string]string `yaml:"halves"`
	Icons    map[string]string `yaml:"icons"`
}

// LoadAssets decodes a manifest file.
func LoadAssets(fsys fs.FS, name string) (*Assets, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}
	var a Assets
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode asset manifest: %w", err)
	}
	return &a, nil
}

// DefaultAssets loads the embedded manifest.
func DefaultAssets() (*Assets, error) {
	return LoadAssets(assets.FS, "manifest.yaml")
}

// Path resolves an image, quarter, or half key. Nil-safe.
func (a *Assets) Path(key string) string {
	if a == nil || key == "" {
		return ""
	}
	for _, m := range []map[string]string{a.Images, a.Quarters, a.Halves} {
		if p, ok := m[key]; ok {
			return p
		}
	}
	return ""
}

// Icon returns the glyph for an icon key, or "".
func (a *Assets) Icon(key string) string {
	if a == nil {
		return ""
	}
	return a.Icons[key]
}
