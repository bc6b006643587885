// Package extractor reads plugin metadata from plugin sources, refmap
// manifests and .elyx archives.
package extractor

import (
	"regexp"
	"strings"
)

// assignment matches a top-level __key__ = value line. The value may be
// single, double or triple quoted, or a bracketed list.
var assignment = regexp.MustCompile(`(?ms)^__([a-z_]+?)__[ \t]*=[ \t]*(?:"""(.*?)"""|'''(.*?)'''|"((?:[^"\\\n]|\\.)*)"|'((?:[^'\\\n]|\\.)*)'|\[(.*?)\])`)

var listItem = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)'`)

// Dunder holds the __key__ assignments found in a plugin source.
type Dunder struct {
	Values map[string]string
	Lists  map[string][]string
}

// ParseDunder collects string and list assignments. The first assignment
// of a key wins.
func ParseDunder(src []byte) Dunder {
	d := Dunder{Values: map[string]string{}, Lists: map[string][]string{}}
	for _, m := range assignment.FindAllSubmatch(src, -1) {
		key := string(m[1])
		if _, seen := d.Values[key]; seen {
			continue
		}
		if _, seen := d.Lists[key]; seen {
			continue
		}
		switch {
		case m[6] != nil:
			d.Lists[key] = parseList(string(m[6]))
		case m[2] != nil:
			d.Values[key] = strings.TrimSpace(string(m[2]))
		case m[3] != nil:
			d.Values[key] = strings.TrimSpace(string(m[3]))
		case m[4] != nil:
			d.Values[key] = unescape(string(m[4]))
		default:
			d.Values[key] = unescape(string(m[5]))
		}
	}
	return d
}

// Get returns a string value.
func (d Dunder) Get(key string) string {
	return d.Values[key]
}

// List returns a list value. A plain string value is treated as a
// comma-separated list.
func (d Dunder) List(key string) []string {
	if l, ok := d.Lists[key]; ok {
		return l
	}
	v, ok := d.Values[key]
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseList(body string) []string {
	out := []string{}
	for _, m := range listItem.FindAllStringSubmatch(body, -1) {
		item := m[1]
		if item == "" {
			item = m[2]
		}
		out = append(out, unescape(item))
	}
	return out
}

var escapes = strings.NewReplacer(`\"`, `"`, `\'`, `'`, `\\`, `\`, `\n`, "\n", `\t`, "\t")

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return escapes.Replace(s)
}
