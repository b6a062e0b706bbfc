package graph

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Result is an evaluated Input.
type Result struct {
	Value  any
	Known  bool
	Secret bool
}

// Env supplies the outputs of upstream declarations while an Input is
// evaluated. The engine provides one per preview and per update.
type Env interface {
	// Lookup returns the output at path (dotted) of the declaration urn.
	// The path "id" addresses the provider assigned ID.
	Lookup(urn URN, path string) (Result, error)
}

// Input is the untyped view of an Output used in Props.
type Input interface {
	Dependencies() []URN
	IsSecret() bool
	Resolve(env Env) (Result, error)
}

// Props are the inputs of a declaration keyed by property name.
type Props map[string]Input

// Output is a value that may not be known until reconciliation. Outputs are
// immutable; combinators return new Outputs that carry the union of their
// dependencies and the sensitivity of their sources.
type Output[T any] struct {
	st *outputState
}

type outputState struct {
	deps   []URN
	secret bool
	eval   func(env Env) (Result, error)
}

// Val returns a known Output holding v.
func Val[T any](v T) Output[T] {
	return Output[T]{st: &outputState{eval: func(Env) (Result, error) {
		return Result{Value: v, Known: true}, nil
	}}}
}

// SecretVal returns a known sensitive Output holding v.
func SecretVal[T any](v T) Output[T] { return ToSecret(Val(v)) }

// IsZero reports whether o was never assigned.
func (o Output[T]) IsZero() bool { return o.st == nil }

// Dependencies returns the URNs o depends on.
func (o Output[T]) Dependencies() []URN {
	if o.st == nil {
		return nil
	}
	return append([]URN(nil), o.st.deps...)
}

// IsSecret reports whether o is statically known to be sensitive.
func (o Output[T]) IsSecret() bool { return o.st != nil && o.st.secret }

// Resolve evaluates o against env.
func (o Output[T]) Resolve(env Env) (Result, error) {
	if o.st == nil {
		return Result{Known: true}, nil
	}
	r, err := o.st.eval(env)
	if err != nil {
		return Result{}, err
	}
	r.Secret = r.Secret || o.st.secret
	if !r.Known {
		r.Value = nil
	}
	return r, nil
}

// Get evaluates o and converts the value to T. known is false when an
// upstream value is not available yet.
func (o Output[T]) Get(env Env) (v T, known bool, err error) {
	r, err := o.Resolve(env)
	if err != nil || !r.Known {
		return v, false, err
	}
	v, err = convert[T](r.Value)
	return v, err == nil, err
}

// ToSecret returns o marked as sensitive.
func ToSecret[T any](o Output[T]) Output[T] {
	if o.st == nil {
		return Output[T]{st: &outputState{secret: true, eval: func(Env) (Result, error) {
			return Result{Known: true, Secret: true}, nil
		}}}
	}
	return Output[T]{st: &outputState{deps: o.st.deps, secret: true, eval: o.st.eval}}
}

// Apply derives a new Output by running fn once o is known. fn never sees a
// placeholder: while o is unknown the result stays unknown.
func Apply[T, U any](o Output[T], fn func(T) U) Output[U] {
	return ApplyErr(o, func(v T) (U, error) { return fn(v), nil })
}

// ApplyErr is Apply for transformations that can fail.
func ApplyErr[T, U any](o Output[T], fn func(T) (U, error)) Output[U] {
	src := o
	if src.st == nil {
		src = Val(*new(T))
	}
	return Output[U]{st: &outputState{
		deps:   src.st.deps,
		secret: src.st.secret,
		eval: func(env Env) (Result, error) {
			r, err := src.Resolve(env)
			if err != nil {
				return Result{}, err
			}
			if !r.Known {
				return Result{Secret: r.Secret}, nil
			}
			v, err := convert[T](r.Value)
			if err != nil {
				return Result{}, err
			}
			u, err := fn(v)
			if err != nil {
				return Result{}, err
			}
			return Result{Value: u, Known: true, Secret: r.Secret}, nil
		},
	}}
}

// All combines inputs into an Output of their values in order.
func All(inputs ...Input) Output[[]any] {
	var deps []URN
	secret := false
	for _, in := range inputs {
		deps = mergeURNs(deps, in.Dependencies())
		secret = secret || in.IsSecret()
	}
	return Output[[]any]{st: &outputState{
		deps:   deps,
		secret: secret,
		eval: func(env Env) (Result, error) {
			out := make([]any, len(inputs))
			res := Result{Known: true}
			for i, in := range inputs {
				r, err := in.Resolve(env)
				if err != nil {
					return Result{}, err
				}
				res.Secret = res.Secret || r.Secret
				if !r.Known {
					res.Known = false
					continue
				}
				out[i] = r.Value
			}
			if res.Known {
				res.Value = out
			}
			return res, nil
		},
	}}
}

// lookupOutput returns an Output reading path from the outputs of urn.
func lookupOutput[T any](urn URN, path string, secret bool) Output[T] {
	return Output[T]{st: &outputState{
		deps:   []URN{urn},
		secret: secret,
		eval: func(env Env) (Result, error) {
			if env == nil {
				return Result{Secret: secret}, nil
			}
			return env.Lookup(urn, path)
		},
	}}
}

func convert[T any](v any) (T, error) {
	var out T
	if v == nil {
		return out, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(Plain(v)); err != nil {
		return out, fmt.Errorf("convert %T to %T: %w", v, out, err)
	}
	return out, nil
}

func mergeURNs(a, b []URN) []URN {
	seen := make(map[URN]struct{}, len(a)+len(b))
	out := make([]URN, 0, len(a)+len(b))
	for _, list := range [][]URN{a, b} {
		for _, u := range list {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Object combines props into an Output of a map. Unassigned Outputs are left
// out; the map is unknown while any member is unknown.
func Object(props Props) Output[map[string]any] {
	keys := make([]string, 0, len(props))
	inputs := make([]Input, 0, len(props))
	for _, k := range sortedKeys(props) {
		if isUnset(props[k]) {
			continue
		}
		keys = append(keys, k)
		inputs = append(inputs, props[k])
	}
	return Apply(All(inputs...), func(vs []any) map[string]any {
		out := make(map[string]any, len(vs))
		for i, v := range vs {
			if v != nil {
				out[keys[i]] = v
			}
		}
		return out
	})
}

// Set assigns in to key unless in is an unassigned Output.
func (p Props) Set(key string, in Input) {
	if isUnset(in) {
		return
	}
	p[key] = in
}

func isUnset(in Input) bool {
	if in == nil {
		return true
	}
	z, ok := in.(interface{ IsZero() bool })
	return ok && z.IsZero()
}
