package providerdrv

import (
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/kompox/aksgraph/domain/graph"
)

// DiffProperties compares olds and news key by key. replaceKeys are dotted
// paths ("metadata.name") or top-level keys whose change forces a
// replacement. An unknown new value counts as a change.
func DiffProperties(olds, news graph.PropertyMap, replaceKeys ...string) *DiffResult {
	res := &DiffResult{}
	keys := map[string]struct{}{}
	for k := range olds {
		keys[k] = struct{}{}
	}
	for k := range news {
		keys[k] = struct{}{}
	}
	for k := range keys {
		if !valuesEqual(olds[k], news[k]) {
			res.Changes = append(res.Changes, k)
		}
	}
	sort.Strings(res.Changes)
	for _, path := range replaceKeys {
		top, _, _ := strings.Cut(path, ".")
		if !contains(res.Changes, top) {
			continue
		}
		ov, _, _ := olds.Path(path)
		nv, _, nok := news.Path(path)
		if !nok {
			// a Computed parent hides the path
			if v, ok := news[top]; ok && graph.IsComputed(v) {
				res.Replaces = append(res.Replaces, path)
			} else if ov != nil {
				res.Replaces = append(res.Replaces, path)
			}
			continue
		}
		if !valuesEqual(ov, nv) {
			res.Replaces = append(res.Replaces, path)
		}
	}
	return res
}

func valuesEqual(a, b any) bool {
	if graph.IsComputed(a) || graph.IsComputed(b) {
		return false
	}
	return cmp.Equal(graph.Plain(a), graph.Plain(b))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DecodeInputs decodes a PropertyMap into a typed struct using json tags.
// Secret wrappers are removed first; Computed values decode as zero values.
func DecodeInputs(m graph.PropertyMap, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(dropComputed(graph.Plain(map[string]any(m))))
}

func dropComputed(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if graph.IsComputed(e) {
				continue
			}
			out[k] = dropComputed(e)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if graph.IsComputed(e) {
				continue
			}
			out = append(out, dropComputed(e))
		}
		return out
	default:
		return v
	}
}
