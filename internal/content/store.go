// internal/content/store.go
//
// Translation store.
// Responsibilities:
//   - Load one YAML catalog per language (file name is the BCP 47 tag).
//   - Resolve domain + dotted key through the language fallback chain
//     (es-MX -> es-419 -> es -> default).
//   - Interpolate parameters and plural forms (format.go).
//
// Lookups never fail: a missing or non-leaf key yields "[Missing: domain.key]".

package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/robalobadob/wholepart/assets"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Store holds every loaded catalog. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	catalogs map[language.Tag]map[string]any
	def      language.Tag
}

// Load reads <dir>/*.yaml from fsys. def names the default language and must
// be one of the loaded catalogs.
func Load(fsys fs.FS, dir, def string) (*Store, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}
	s := &Store{catalogs: make(map[language.Tag]map[string]any)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		tag, err := language.Parse(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			return nil, fmt.Errorf("content file %s: %w", name, err)
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("content file %s: %w", name, err)
		}
		s.catalogs[tag] = tree
	}
	if err := s.SetDefault(def); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadDefault loads the embedded catalogs.
func LoadDefault(def string) (*Store, error) {
	return Load(assets.FS, "content", def)
}

// SetDefault changes the final fallback language.
func (s *Store) SetDefault(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("default language: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalogs[tag]; !ok {
		return errors.New("default language " + lang + " has no catalog")
	}
	s.def = tag
	return nil
}

// Default returns the fallback language.
func (s *Store) Default() language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def
}

// Languages lists the loaded languages, default first.
func (s *Store) Languages() []language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]language.Tag, 0, len(s.catalogs))
	for tag := range s.catalogs {
		if tag != s.def {
			out = append(out, tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return append([]language.Tag{s.def}, out...)
}

// Text resolves domain.key for lang and formats it with params.
func (s *Store) Text(lang, domain, key string, params map[string]any) string {
	return s.For(lang).Text(domain, key, params)
}

// For returns a Localizer bound to lang. Unparseable input binds to the
// default language.
func (s *Store) For(lang string) *Localizer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = s.Default()
	}
	return &Localizer{store: s, tag: tag}
}

// lookup walks the fallback chain for tag and returns the first leaf string
// found plus the language it came from.
func (s *Store) lookup(tag language.Tag, domain, key string) (string, language.Tag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parts := append([]string{domain}, strings.Split(key, ".")...)
	for t := tag; ; t = t.Parent() {
		if cat, ok := s.catalogs[t]; ok {
			if v, ok := walk(cat, parts); ok {
				return v, t, true
			}
		}
		if t == language.Und {
			break
		}
	}
	if v, ok := walk(s.catalogs[s.def], parts); ok {
		return v, s.def, true
	}
	return "", tag, false
}

func walk(tree map[string]any, parts []string) (string, bool) {
	var cur any = tree
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[p]; !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case int, float64, bool:
		return fmt.Sprint(v), true
	}
	return "", false
}

// Localizer resolves text for one language.
type Localizer struct {
	store *Store
	tag   language.Tag
}

// Tag is the language the localizer was bound to.
func (l *Localizer) Tag() language.Tag { return l.tag }

// Text resolves domain.key and formats it; missing keys produce a diagnostic
// placeholder.
func (l *Localizer) Text(domain, key string, params map[string]any) string {
	raw, from, ok := l.store.lookup(l.tag, domain, key)
	if !ok {
		return Missing(domain, key)
	}
	if len(params) == 0 {
		return raw
	}
	return Format(from, raw, params)
}

// Lookup reports whether domain.key exists anywhere in the fallback chain.
func (l *Localizer) Lookup(domain, key string) (string, bool) {
	raw, _, ok := l.store.lookup(l.tag, domain, key)
	return raw, ok
}

// Missing is the placeholder returned for unresolved keys.
func Missing(domain, key string) string {
	return "[Missing: " + domain + "." + key + "]"
}
