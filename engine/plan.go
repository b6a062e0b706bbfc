package engine

import (
	"context"
	"fmt"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
	"github.com/kompox/aksgraph/internal/logging"
)

// Op is the operation a Step performs.
type Op string

const (
	OpSame    Op = "same"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
	OpRead    Op = "read"
)

// Step is one planned operation.
type Step struct {
	Op   Op
	URN  graph.URN
	Type string
	Kind graph.Kind
	// Resource is the declaration; nil for OpDelete.
	Resource *graph.Resource
	// Old is the recorded state; nil for OpCreate and OpRead.
	Old *model.ResourceState
	// Inputs are the planned inputs, possibly containing graph.Computed.
	Inputs graph.PropertyMap
	Diff   *providerdrv.DiffResult
}

// Plan is the ordered set of steps that moves Prior to Graph. Steps for
// declarations come in topological order, followed by deletions of recorded
// resources that are no longer declared, dependents first.
type Plan struct {
	Graph   *graph.Graph
	Prior   *model.Snapshot
	Steps   []*Step
	Outputs graph.PropertyMap
}

// Counts returns the number of steps per operation.
func (p *Plan) Counts() map[Op]int {
	counts := map[Op]int{}
	for _, s := range p.Steps {
		counts[s.Op]++
	}
	return counts
}

// HasChanges reports whether executing p would modify any resource.
func (p *Plan) HasChanges() bool {
	for _, s := range p.Steps {
		switch s.Op {
		case OpCreate, OpUpdate, OpReplace, OpDelete:
			return true
		}
	}
	return false
}

// Step returns the step for urn or nil.
func (p *Plan) Step(urn graph.URN) *Step {
	for _, s := range p.Steps {
		if s.URN == urn {
			return s
		}
	}
	return nil
}

type planner struct {
	engine    *Engine
	graph     *graph.Graph
	prior     *model.Snapshot
	steps     map[graph.URN]*Step
	invokes   map[graph.URN]graph.PropertyMap
	providers map[graph.URN]providerdrv.Driver
}

// Plan computes the steps needed to reconcile prior with g. A nil prior is
// an empty stack. Invokes whose arguments are known are run so downstream
// inputs can be evaluated.
func (e *Engine) Plan(ctx context.Context, g *graph.Graph, prior *model.Snapshot) (*Plan, error) {
	if prior == nil {
		prior = model.NewSnapshot(g.Stack())
	}
	if prior.Stack != g.Stack() {
		return nil, fmt.Errorf("%w: %s != %s", ErrStackMismatch, prior.Stack, g.Stack())
	}
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	p := &planner{
		engine:    e,
		graph:     g,
		prior:     prior,
		steps:     map[graph.URN]*Step{},
		invokes:   map[graph.URN]graph.PropertyMap{},
		providers: map[graph.URN]providerdrv.Driver{},
	}
	plan := &Plan{Graph: g, Prior: prior}
	for _, urn := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, _ := g.Lookup(urn)
		step, err := p.plan(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", urn, err)
		}
		p.steps[urn] = step
		plan.Steps = append(plan.Steps, step)
	}
	for i := len(prior.Resources) - 1; i >= 0; i-- {
		st := prior.Resources[i]
		if _, ok := g.Lookup(st.URN); ok {
			continue
		}
		if st.Protect {
			return nil, fmt.Errorf("plan %s: delete: %w", st.URN, ErrProtected)
		}
		plan.Steps = append(plan.Steps, &Step{Op: OpDelete, URN: st.URN, Type: st.Type, Kind: st.Kind, Old: st})
	}
	plan.Outputs, err = resolveExports(g, p.env())
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug(ctx, "plan computed", "stack", g.Stack(), "steps", len(plan.Steps))
	return plan, nil
}

func (p *planner) env() graph.Env {
	return env{graph: p.graph, values: p.values}
}

// values yields prior outputs for declarations kept as they are and unknown
// for anything created or replaced. Outputs of an updated declaration whose
// input of the same name changes are unknown until the update has run.
func (p *planner) values(urn graph.URN) (string, graph.PropertyMap, bool) {
	step := p.steps[urn]
	if step == nil {
		return "", nil, false
	}
	switch step.Op {
	case OpRead:
		outs, ok := p.invokes[urn]
		return "", outs, ok
	case OpSame:
		return step.Old.ID, step.Old.Outputs, true
	case OpUpdate:
		outs := step.Old.Outputs.Copy()
		if step.Diff != nil {
			for _, k := range step.Diff.Changes {
				if _, ok := outs[k]; ok {
					outs[k] = graph.Computed{}
				}
			}
		}
		return step.Old.ID, outs, true
	}
	return "", nil, false
}

func (p *planner) driverFor(ctx context.Context, res *graph.Resource) (providerdrv.Driver, error) {
	if prov := res.Provider(); prov != nil {
		if d, ok := p.providers[prov.URN()]; ok {
			return d, nil
		}
		return p.engine.drivers.Default(ctx, prov.Package())
	}
	return p.engine.drivers.Default(ctx, res.Package())
}

// diffConfig compares the inputs of an explicit provider. Drivers that
// cannot tell which changes move the provider to other infrastructure have
// every change treated as a replacement.
func (p *planner) diffConfig(ctx context.Context, pkg string, olds, news graph.PropertyMap) (*providerdrv.DiffResult, error) {
	d, err := p.engine.drivers.Default(ctx, pkg)
	if err != nil {
		return nil, err
	}
	if cd, ok := d.(providerdrv.ConfigDiffer); ok {
		return cd.DiffConfig(ctx, olds, news)
	}
	diff := providerdrv.DiffProperties(olds, news)
	diff.Replaces = append([]string(nil), diff.Changes...)
	return diff, nil
}

func (p *planner) plan(ctx context.Context, res *graph.Resource) (*Step, error) {
	inputs, err := graph.ResolveProps(res.Inputs(), p.env())
	if err != nil {
		return nil, err
	}
	step := &Step{URN: res.URN(), Type: res.Type(), Kind: res.Kind(), Resource: res, Inputs: inputs}
	old := p.prior.Find(res.URN())

	switch res.Kind() {
	case graph.KindInvoke:
		step.Op = OpRead
		if inputs.ContainsUnknowns() {
			return step, nil
		}
		d, err := p.driverFor(ctx, res)
		if err != nil {
			return nil, err
		}
		outs, err := d.Invoke(ctx, res.Type(), inputs)
		if err != nil {
			return nil, err
		}
		p.invokes[res.URN()] = markSecretOutputs(res, outs)
		return step, nil

	case graph.KindProvider:
		if !inputs.ContainsUnknowns() {
			d, err := p.engine.drivers.Configure(ctx, res.Package(), inputs)
			if err != nil {
				return nil, err
			}
			p.providers[res.URN()] = d
		}
		if old == nil {
			step.Op = OpCreate
			return step, nil
		}
		step.Old = old
		if old.Type != res.Type() {
			step.Op = OpReplace
		} else {
			step.Diff, err = p.diffConfig(ctx, res.Package(), old.Inputs, inputs)
			if err != nil {
				return nil, err
			}
			step.Op = opForDiff(step.Diff)
		}
		return p.checkProtect(step)
	}

	d, err := p.driverFor(ctx, res)
	if err != nil {
		return nil, err
	}
	if err := d.Check(ctx, res.Type(), inputs); err != nil {
		return nil, err
	}
	if old == nil {
		step.Op = OpCreate
		return step, nil
	}
	step.Old = old
	if old.Type != res.Type() {
		step.Op = OpReplace
	} else {
		step.Diff, err = d.Diff(ctx, res.Type(), old.Inputs, inputs)
		if err != nil {
			return nil, err
		}
		step.Op = opForDiff(step.Diff)
	}
	if p.providerMoved(res, old) {
		step.Op = OpReplace
		if step.Diff == nil {
			step.Diff = &providerdrv.DiffResult{}
		}
		step.Diff.Replaces = append(step.Diff.Replaces, "provider")
	}
	return p.checkProtect(step)
}

// providerMoved reports whether the resource now lives behind another
// provider than the one it was created with, or behind one being replaced.
func (p *planner) providerMoved(res *graph.Resource, old *model.ResourceState) bool {
	var urn graph.URN
	if prov := res.Provider(); prov != nil {
		urn = prov.URN()
	}
	if urn != old.Provider {
		return true
	}
	if urn == "" {
		return false
	}
	s := p.steps[urn]
	return s != nil && s.Op == OpReplace
}

func (p *planner) checkProtect(step *Step) (*Step, error) {
	if step.Op == OpReplace && step.Old != nil && step.Old.Protect {
		return nil, fmt.Errorf("replace: %w", ErrProtected)
	}
	return step, nil
}

func opForDiff(diff *providerdrv.DiffResult) Op {
	switch {
	case diff.RequiresReplace():
		return OpReplace
	case diff.HasChanges():
		return OpUpdate
	default:
		return OpSame
	}
}
