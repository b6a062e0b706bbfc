package graph

import "fmt"

// ResolveProps evaluates props against env into a PropertyMap. Unknown values
// become Computed, sensitive values are wrapped in Secret and unset values
// are omitted.
func ResolveProps(props Props, env Env) (PropertyMap, error) {
	out := make(PropertyMap, len(props))
	for _, k := range sortedKeys(props) {
		v, err := ResolveInput(props[k], env)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", k, err)
		}
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// ResolveInput evaluates a single Input into its PropertyMap value.
func ResolveInput(in Input, env Env) (any, error) {
	r, err := in.Resolve(env)
	if err != nil {
		return nil, err
	}
	if !r.Known {
		return Computed{}, nil
	}
	v, err := Normalize(r.Value)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if r.Secret {
		if s, ok := v.(Secret); ok {
			return s, nil
		}
		return Secret{Element: v}, nil
	}
	return v, nil
}
