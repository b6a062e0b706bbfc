package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// PropertyMap is the JSON shaped form of resource inputs and outputs exchanged
// between the graph, the engine and provider drivers. Values are nil, bool,
// float64, string, []any, map[string]any, Secret or Computed.
type PropertyMap map[string]any

// Secret marks a value as sensitive. Its plaintext never shows up through
// fmt or slog.
type Secret struct {
	Element any
}

const secretMask = "[secret]"

func (Secret) String() string { return secretMask }
func (Secret) GoString() string { return secretMask }
func (Secret) LogValue() slog.Value { return slog.StringValue(secretMask) }
func (Secret) MarshalText() ([]byte, error) { return []byte(secretMask), nil }

// Computed marks a value that is not known until the producing declaration
// has been reconciled.
type Computed struct{}

func (Computed) String() string { return "[unknown]" }

// IsComputed reports whether v is an unknown marker.
func IsComputed(v any) bool {
	_, ok := v.(Computed)
	return ok
}

// Keys returns the map keys in sorted order.
func (m PropertyMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a deep copy of m.
func (m PropertyMap) Copy() PropertyMap {
	if m == nil {
		return nil
	}
	out := make(PropertyMap, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case PropertyMap:
		return map[string]any(t.Copy())
	case map[string]any:
		return map[string]any(PropertyMap(t).Copy())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case Secret:
		return Secret{Element: copyValue(t.Element)}
	default:
		return v
	}
}

// Path returns the value at a dotted path such as "metadata.name". Secret
// wrappers on the way are unwrapped and reported. A Computed value on the way
// makes the whole path Computed.
func (m PropertyMap) Path(path string) (v any, secret bool, ok bool) {
	var cur any = map[string]any(m)
	for _, seg := range strings.Split(path, ".") {
		if s, isSecret := cur.(Secret); isSecret {
			secret = true
			cur = s.Element
		}
		switch t := cur.(type) {
		case Computed:
			return t, secret, true
		case map[string]any:
			cur, ok = t[seg]
		case PropertyMap:
			cur, ok = t[seg]
		default:
			return nil, secret, false
		}
		if !ok {
			return nil, secret, false
		}
	}
	if s, isSecret := cur.(Secret); isSecret {
		return s.Element, true, true
	}
	return cur, secret, true
}

// ContainsUnknowns reports whether any value in m is Computed.
func (m PropertyMap) ContainsUnknowns() bool { return containsUnknowns(map[string]any(m)) }

func containsUnknowns(v any) bool {
	switch t := v.(type) {
	case Computed:
		return true
	case Secret:
		return containsUnknowns(t.Element)
	case PropertyMap:
		return containsUnknowns(map[string]any(t))
	case map[string]any:
		for _, e := range t {
			if containsUnknowns(e) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if containsUnknowns(e) {
				return true
			}
		}
	}
	return false
}

// ContainsSecrets reports whether any value in m is a Secret.
func (m PropertyMap) ContainsSecrets() bool { return containsSecrets(map[string]any(m)) }

func containsSecrets(v any) bool {
	switch t := v.(type) {
	case Secret:
		return true
	case PropertyMap:
		return containsSecrets(map[string]any(t))
	case map[string]any:
		for _, e := range t {
			if containsSecrets(e) {
				return true
			}
		}
	case []any:
		for _, e := range t {
			if containsSecrets(e) {
				return true
			}
		}
	}
	return false
}

// Plain returns v with every Secret wrapper removed. Drivers call it before
// decoding inputs into typed structs.
func Plain(v any) any {
	switch t := v.(type) {
	case Secret:
		return Plain(t.Element)
	case PropertyMap:
		return Plain(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	default:
		return v
	}
}

// Normalize converts v into its JSON shaped form so values compare equal
// regardless of whether they came from Go code or from persisted state.
// Secret and Computed markers are kept.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, float64, string:
		return t, nil
	case Computed:
		return t, nil
	case Secret:
		e, err := Normalize(t.Element)
		if err != nil {
			return nil, err
		}
		return Secret{Element: e}, nil
	case PropertyMap:
		return Normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	return out, nil
}
