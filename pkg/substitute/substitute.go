// Package substitute resolves {name} placeholders in authored block text
// against the captures recorded during a run.
package substitute

import (
	"regexp"

	"fluxplay/pkg/models"
)

// placeholder matches {identifier} where identifier is any non-empty run
// of characters that does not contain '}'.
var placeholder = regexp.MustCompile(`\{([^}]+)\}`)

// Apply replaces each {name} in text with the capture value for name.
// Unknown names are left verbatim, so re-running Apply on already
// substituted text is a no-op as long as capture values carry no
// placeholders themselves. Values are inserted raw, without escaping.
func Apply(text string, vars map[string]string) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Names returns the placeholder names referenced by text, in order of
// first appearance.
func Names(text string) []string {
	ms := placeholder.FindAllStringSubmatch(text, -1)
	if len(ms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ms))
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// ApplyBlock rewrites the rendered fields of a block in place and returns
// it. Only human-visible text participates; URLs and identifiers are never
// rewritten. A block whose payload carries no text passes through
// untouched rather than failing the render.
func ApplyBlock(b models.Block, vars map[string]string) models.Block {
	b.Text = Apply(b.Text, vars)
	if b.Legend != "" {
		b.Legend = Apply(b.Legend, vars)
	}
	return b
}
