package engine

import (
	"fmt"

	"github.com/kompox/aksgraph/domain/graph"
)

// valuesFunc returns the ID and outputs of urn, or known=false while they
// are not available.
type valuesFunc func(urn graph.URN) (id string, outputs graph.PropertyMap, known bool)

// env implements graph.Env over a values source.
type env struct {
	graph  *graph.Graph
	values valuesFunc
}

func (e env) Lookup(urn graph.URN, path string) (graph.Result, error) {
	res, ok := e.graph.Lookup(urn)
	if !ok {
		return graph.Result{}, fmt.Errorf("%w: %s", graph.ErrUnknownReference, urn)
	}
	secret := res.IsSecretOutput(path)
	id, outs, known := e.values(urn)
	if !known {
		return graph.Result{Secret: secret}, nil
	}
	if path == "id" {
		return graph.Result{Value: id, Known: true, Secret: secret}, nil
	}
	v, s, ok := outs.Path(path)
	if !ok {
		return graph.Result{Known: true, Secret: secret}, nil
	}
	wrapped := graph.PropertyMap{"v": v}
	if wrapped.ContainsUnknowns() {
		return graph.Result{Secret: secret || s}, nil
	}
	return graph.Result{
		Value:  graph.Plain(v),
		Known:  true,
		Secret: secret || s || wrapped.ContainsSecrets(),
	}, nil
}

// resolveExports evaluates the stack outputs of g.
func resolveExports(g *graph.Graph, e graph.Env) (graph.PropertyMap, error) {
	out := graph.PropertyMap{}
	for _, ex := range g.Exports() {
		v, err := graph.ResolveInput(ex.Value, e)
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", ex.Name, err)
		}
		if v != nil {
			out[ex.Name] = v
		}
	}
	return out, nil
}

// markSecretOutputs wraps the top-level outputs res declares sensitive.
func markSecretOutputs(res *graph.Resource, outs graph.PropertyMap) graph.PropertyMap {
	if outs == nil {
		return graph.PropertyMap{}
	}
	for k, v := range outs {
		if _, ok := v.(graph.Secret); ok || !res.IsSecretOutput(k) {
			continue
		}
		outs[k] = graph.Secret{Element: v}
	}
	return outs
}
