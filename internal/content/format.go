// internal/content/format.go
//
// ICU-lite message formatting:
//   {name}                                  -> params["name"]
//   {count, plural, =0 {...} one {...} other {...}}
//                                           -> branch picked by exact match, then by
//                                              the CLDR plural category of the language;
//                                              '#' inside the branch is the number.
//
// Unknown placeholders are left untouched so templated tokens such as {whole}
// survive for later substitution.

package content

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

// Format renders msg with params using the plural rules of tag.
func Format(tag language.Tag, msg string, params map[string]any) string {
	var b strings.Builder
	for i := 0; i < len(msg); {
		c := msg[i]
		if c != '{' {
			b.WriteByte(c)
			i++
			continue
		}
		end := matchBrace(msg, i)
		if end < 0 {
			b.WriteString(msg[i:])
			break
		}
		b.WriteString(argument(tag, msg[i+1:end], msg[i:end+1], params))
		i = end + 1
	}
	return b.String()
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func argument(tag language.Tag, body, literal string, params map[string]any) string {
	name, rest, hasKind := strings.Cut(body, ",")
	name = strings.TrimSpace(name)
	v, ok := params[name]
	if !hasKind {
		if !ok {
			return literal
		}
		return fmt.Sprint(v)
	}
	kind, options, _ := strings.Cut(rest, ",")
	if strings.TrimSpace(kind) != "plural" || !ok {
		return literal
	}
	n, ok := toInt(v)
	if !ok {
		return literal
	}
	branch, ok := pickPlural(tag, n, parseOptions(options))
	if !ok {
		return literal
	}
	branch = strings.ReplaceAll(branch, "#", strconv.Itoa(n))
	return Format(tag, branch, params)
}

// parseOptions splits "=0 {none} one {# part} other {# parts}" into selector -> message.
func parseOptions(s string) map[string]string {
	out := make(map[string]string)
	for {
		s = strings.TrimSpace(s)
		open := strings.IndexByte(s, '{')
		if open <= 0 {
			return out
		}
		end := matchBrace(s, open)
		if end < 0 {
			return out
		}
		out[strings.TrimSpace(s[:open])] = s[open+1 : end]
		s = s[end+1:]
	}
}

func pickPlural(tag language.Tag, n int, opts map[string]string) (string, bool) {
	if m, ok := opts["="+strconv.Itoa(n)]; ok {
		return m, true
	}
	abs := n
	if abs < 0 {
		abs = -abs
	}
	form := plural.Cardinal.MatchPlural(tag, abs, 0, 0, 0, 0)
	if m, ok := opts[formName(form)]; ok {
		return m, true
	}
	m, ok := opts["other"]
	return m, ok
}

func formName(f plural.Form) string {
	switch f {
	case plural.Zero:
		return "zero"
	case plural.One:
		return "one"
	case plural.Two:
		return "two"
	case plural.Few:
		return "few"
	case plural.Many:
		return "many"
	}
	return "other"
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
