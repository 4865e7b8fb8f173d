// Package variables implements the per-session variable context used for
// template interpolation and condition evaluation.
package variables

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SystemNamespace is the reserved prefix for engine-maintained values.
const SystemNamespace = "sys"

// placeholder matches {{name}} first, then {name}. Names may contain dots for nested lookups.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}|\{([A-Za-z0-9_.\-]+)\}`)

// Context is a view over a session's variables. It is never shared across sessions.
type Context struct {
	vars map[string]any
	sys  map[string]any
}

// New wraps the given maps. Writes through Set mutate vars in place.
func New(vars, sys map[string]any) *Context {
	if vars == nil {
		vars = make(map[string]any)
	}
	if sys == nil {
		sys = make(map[string]any)
	}
	return &Context{vars: vars, sys: sys}
}

// Get returns the value bound to name. Dotted names walk nested maps
// ("stock.price"); the "sys." prefix reads the system namespace.
func (c *Context) Get(name string) (any, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	if rest, ok := strings.CutPrefix(name, SystemNamespace+"."); ok {
		return lookup(c.sys, rest)
	}
	return lookup(c.vars, name)
}

// Set binds value to name in the user namespace. Later writes overwrite earlier ones.
// Writes to the system namespace are ignored.
func (c *Context) Set(name string, value any) {
	name = strings.TrimSpace(name)
	if name == "" || name == SystemNamespace || strings.HasPrefix(name, SystemNamespace+".") {
		return
	}
	c.vars[name] = value
}

// SetSystem binds value in the system namespace.
func (c *Context) SetSystem(name string, value any) {
	c.sys[name] = value
}

// String returns the stringified value of name, or "" when unset.
func (c *Context) String(name string) string {
	v, ok := c.Get(name)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Interpolate replaces every {{name}} or {name} occurrence with the stringified value.
// Unknown names become the empty string.
func (c *Context) Interpolate(template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		return c.String(name)
	})
}

// Snapshot returns a flat copy of the variables with the system namespace under "sys".
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.vars)+1)
	for k, v := range c.vars {
		out[k] = v
	}
	sys := make(map[string]any, len(c.sys))
	for k, v := range c.sys {
		sys[k] = v
	}
	out[SystemNamespace] = sys
	return out
}

func lookup(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(name, ".")
	if !found {
		return nil, false
	}
	v, ok := m[head]
	if !ok {
		return nil, false
	}
	nested, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(nested, rest)
}

// Stringify formats a value deterministically: no thousands separators,
// no exponents, "true"/"false" for booleans and "" for nil.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if name, ok := t["name"]; ok {
			return Stringify(name)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Stringify(t[k])
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Number converts a variable value to a float64. Strings are parsed after
// trimming; a comma is accepted as decimal separator.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
