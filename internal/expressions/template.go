package expressions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scope holds the data available for {{...}} placeholder resolution during
// one workflow run: the immutable trigger payload and the variables
// accumulated by previously executed nodes.
type Scope struct {
	Payload   map[string]any
	Variables map[string]any
}

// Resolve resolves {{identifier}} and {{identifier.path}} placeholders in
// value. Only strings are scanned; any other value passes through unchanged.
//
// Resolution order per placeholder: (a) exact key in the payload; (b) if the
// identifier contains a dot, walk the variables by the leading segment and
// then successive property accesses; (c) direct key in the variables.
//
// A placeholder that cannot be resolved is left as the literal {{...}} text.
// Existing workflow configs probe for absence by string comparison, so this
// must never become an error or a null.
func Resolve(value any, scope *Scope) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return ResolveString(s, scope)
}

// ResolveString resolves placeholders in s. When the whole string is a single
// placeholder, the underlying value is returned unchanged (maps and numbers
// survive as themselves); otherwise resolved values are stringified in place.
func ResolveString(s string, scope *Scope) any {
	if !strings.Contains(s, "{{") {
		return s
	}

	// Whole-string placeholder: return the raw value.
	if expr, ok := wholePlaceholder(s); ok {
		val, resolved := lookup(expr, scope)
		if !resolved {
			return s
		}
		return val
	}

	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		idx := strings.Index(s[i:], "{{")
		if idx == -1 {
			result.WriteString(s[i:])
			break
		}

		result.WriteString(s[i : i+idx])
		start := i + idx + 2

		end := strings.Index(s[start:], "}}")
		if end == -1 {
			// Unclosed marker: keep the rest verbatim.
			result.WriteString(s[i+idx:])
			break
		}
		end += start

		expr := strings.TrimSpace(s[start:end])
		val, resolved := lookup(expr, scope)
		if resolved {
			result.WriteString(stringify(val))
		} else {
			result.WriteString(s[i+idx : end+2])
		}

		i = end + 2
	}

	return result.String()
}

// wholePlaceholder reports whether s is exactly one {{...}} token and returns
// the trimmed inner expression.
func wholePlaceholder(s string) (string, bool) {
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	inner := s[2 : len(s)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// lookup resolves a single placeholder expression against the scope.
func lookup(expr string, scope *Scope) (any, bool) {
	if expr == "" || scope == nil {
		return nil, false
	}

	// (a) exact key in the trigger payload, dots included.
	if scope.Payload != nil {
		if val, ok := scope.Payload[expr]; ok {
			return val, true
		}
	}

	// (b) dotted path into the variables.
	if strings.Contains(expr, ".") {
		parts := strings.SplitN(expr, ".", 2)
		root, ok := scope.Variables[parts[0]]
		if !ok {
			return nil, false
		}
		return traversePath(root, parts[1])
	}

	// (c) direct key in the variables.
	if scope.Variables != nil {
		if val, ok := scope.Variables[expr]; ok {
			return val, true
		}
	}

	return nil, false
}

// traversePath navigates into nested maps using a dot-delimited path.
// Any undefined segment fails the whole substitution.
func traversePath(root any, path string) (any, bool) {
	current := root
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, false
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = val
	}
	return current, true
}

// stringify converts a resolved value into its inline string representation.
// Strings embed without extra quotes; complex types JSON-encode inline.
func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case json.RawMessage:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// IsUnresolved reports whether a resolved value still carries a {{...}}
// placeholder, i.e. the substitution failed. Condition operators treat such
// values as absent; field mappings skip them.
func IsUnresolved(val any) bool {
	s, ok := val.(string)
	if !ok {
		return false
	}
	open := strings.Index(s, "{{")
	return open != -1 && strings.Contains(s[open:], "}}")
}

// StripQuotes removes one pair of surrounding single or double quotes.
// Find-node lookup values are commonly authored as '"value"' in configs.
func StripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
