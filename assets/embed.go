// Package assets embeds the authored content, translations, migrations, and
// the browser shell.
package assets

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed scenes.yaml manifest.yaml content/*.yaml sql/*.sql web
var FS embed.FS

// Migration is one SQL file under sql/, applied in name order.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded SQL migrations sorted by file name.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(FS, "sql")
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		b, err := FS.ReadFile(path.Join("sql", e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: e.Name(), SQL: strings.TrimSpace(string(b))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Static is the file tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(FS, "web/static")
	if err != nil {
		panic(err)
	}
	return sub
}

// IndexHTML is the page shell.
func IndexHTML() ([]byte, error) {
	return FS.ReadFile("web/index.html")
}
