// Package template renders prompt bodies by flat variable substitution.
// Placeholders use double-brace {{identifier}} syntax; anything fancier is a
// job for a real templating language and out of scope here.
package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/isaacphi/promptwheel/internal/domain"
)

// Placeholders returns the distinct placeholder names in body, in order of
// first appearance.
func Placeholders(body string) []string {
	var names []string
	seen := make(map[string]bool)
	rest := body
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			break
		}
		name := rest[start+2 : start+2+end]
		rest = rest[start+2+end+2:]
		if !isIdentifier(name) {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// Render substitutes every {{name}} placeholder in body with the value from
// variables, falling back to defaults. Values are stringified with %v. If
// any placeholder resolves to neither, all missing names are reported in a
// single MissingVariablesError.
func Render(body string, defaults map[string]string, variables map[string]any) (string, error) {
	rendered := body
	var missing []string

	for _, name := range Placeholders(body) {
		var value string
		if v, ok := variables[name]; ok {
			value = fmt.Sprintf("%v", v)
		} else if d, ok := defaults[name]; ok {
			value = d
		} else {
			missing = append(missing, name)
			continue
		}
		rendered = strings.ReplaceAll(rendered, "{{"+name+"}}", value)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", domain.MissingVariablesError{Names: missing}
	}
	return rendered, nil
}
