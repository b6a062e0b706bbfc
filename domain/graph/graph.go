package graph

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"

	dag "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// Export is a named stack output.
type Export struct {
	Name  string
	Value Input
}

// Graph accumulates declarations in program order. Every reference must point
// at a declaration registered earlier, so program order is always a valid
// topological order and the graph can never contain a cycle.
type Graph struct {
	project string
	stack   string
	dag     dag.Graph[URN, *Resource]
	order   []*Resource
	byURN   map[URN]*Resource
	exports []Export
	invokes map[string]int
}

// New returns an empty graph for project/stack.
func New(project, stack string) *Graph {
	return &Graph{
		project: project,
		stack:   stack,
		dag:     dag.New(func(r *Resource) URN { return r.urn }, dag.Directed(), dag.Acyclic(), dag.PreventCycles()),
		byURN:   map[URN]*Resource{},
		invokes: map[string]int{},
	}
}

// Project returns the project name.
func (g *Graph) Project() string { return g.project }

// Stack returns the stack name.
func (g *Graph) Stack() string { return g.stack }

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Register declares a managed resource.
func (g *Graph) Register(typ, name string, props Props, opts ...ResourceOption) (*Resource, error) {
	return g.register(KindResource, typ, name, props, opts)
}

// RegisterProvider declares an explicit provider for pkg.
func (g *Graph) RegisterProvider(pkg, name string, props Props, opts ...ResourceOption) (*Resource, error) {
	return g.register(KindProvider, ProviderType(pkg), name, props, opts)
}

// Invoke declares a read-only function call. Its outputs are addressed like
// resource outputs; names are generated per token.
func (g *Graph) Invoke(token string, props Props, opts ...ResourceOption) (*Resource, error) {
	name := fmt.Sprintf("invoke-%d", g.invokes[token]+1)
	r, err := g.register(KindInvoke, token, name, props, opts)
	if err != nil {
		return nil, err
	}
	g.invokes[token]++
	return r, nil
}

func (g *Graph) register(kind Kind, typ, name string, props Props, opts []ResourceOption) (*Resource, error) {
	if !nameRE.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: empty type for %q", ErrInvalidName, name)
	}
	if props == nil {
		props = Props{}
	}
	r := &Resource{
		urn:     NewURN(g.stack, g.project, typ, name),
		typ:     typ,
		name:    name,
		kind:    kind,
		props:   props,
		secrets: map[string]bool{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := g.byURN[r.urn]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateURN, r.urn)
	}
	if r.provider != nil && r.provider.kind != KindProvider {
		return nil, fmt.Errorf("%s: %s is not a provider", r.urn, r.provider.urn)
	}
	for k, in := range props {
		if in == nil {
			return nil, fmt.Errorf("%s: input %q is nil", r.urn, k)
		}
	}
	for _, d := range r.dependsOn {
		if d == nil {
			return nil, fmt.Errorf("%w: %s: nil DependsOn entry", ErrUnknownReference, r.urn)
		}
	}
	deps := r.Dependencies()
	for _, d := range deps {
		if _, ok := g.byURN[d]; !ok {
			return nil, fmt.Errorf("%w: %s references %s", ErrUnknownReference, r.urn, d)
		}
	}
	if err := g.dag.AddVertex(r); err != nil {
		if errors.Is(err, dag.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateURN, r.urn)
		}
		return nil, fmt.Errorf("add vertex %s: %w", r.urn, err)
	}
	for _, d := range deps {
		if err := g.dag.AddEdge(d, r.urn); err != nil {
			if errors.Is(err, dag.ErrEdgeCreatesCycle) {
				return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, d, r.urn)
			}
			return nil, fmt.Errorf("add edge %s -> %s: %w", d, r.urn, err)
		}
	}
	r.index = len(g.order)
	g.order = append(g.order, r)
	g.byURN[r.urn] = r
	return r, nil
}

// Export records a stack output.
func (g *Graph) Export(name string, value Input) error {
	for _, e := range g.exports {
		if e.Name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateExport, name)
		}
	}
	for _, d := range value.Dependencies() {
		if _, ok := g.byURN[d]; !ok {
			return fmt.Errorf("%w: output %s references %s", ErrUnknownReference, name, d)
		}
	}
	g.exports = append(g.exports, Export{Name: name, Value: value})
	return nil
}

// HasSecrets reports whether persisting the state of g can involve secret
// values: a recorded declaration with secret inputs or outputs, or a secret
// stack output. Invoke results are never recorded.
func (g *Graph) HasSecrets() bool {
	for _, r := range g.order {
		if r.kind == KindInvoke {
			continue
		}
		if len(r.secrets) > 0 {
			return true
		}
		for _, in := range r.props {
			if in.IsSecret() {
				return true
			}
		}
	}
	for _, e := range g.exports {
		if e.Value.IsSecret() {
			return true
		}
	}
	return false
}

// Exports returns the stack outputs in declaration order.
func (g *Graph) Exports() []Export { return append([]Export(nil), g.exports...) }

// Resources returns all declarations in program order.
func (g *Graph) Resources() []*Resource { return append([]*Resource(nil), g.order...) }

// Lookup returns the declaration identified by urn.
func (g *Graph) Lookup(urn URN) (*Resource, bool) {
	r, ok := g.byURN[urn]
	return r, ok
}

// Order returns the declarations sorted topologically, ties broken by
// program order.
func (g *Graph) Order() ([]URN, error) {
	return dag.StableTopologicalSort(g.dag, func(a, b URN) bool {
		return g.byURN[a].index < g.byURN[b].index
	})
}

// Dependents returns the URNs that directly depend on urn.
func (g *Graph) Dependents(urn URN) ([]URN, error) {
	adj, err := g.dag.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	edges, ok := adj[urn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, urn)
	}
	out := make([]URN, 0, len(edges))
	for target := range edges {
		out = append(out, target)
	}
	sort.Slice(out, func(i, j int) bool { return g.byURN[out[i]].index < g.byURN[out[j]].index })
	return out, nil
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	return draw.DOT(g.dag, w)
}
