package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
	"github.com/kompox/aksgraph/internal/logging"
)

// run carries the mutable state of one Execute or Destroy call.
type run struct {
	engine *Engine
	graph  *graph.Graph
	prior  *model.Snapshot

	mu           sync.Mutex
	live         map[graph.URN]*model.ResourceState
	invokes      map[graph.URN]graph.PropertyMap
	providers    map[graph.URN]providerdrv.Driver
	oldProviders map[graph.URN]providerdrv.Driver
	outputs      graph.PropertyMap
}

func (e *Engine) newRun(g *graph.Graph, prior *model.Snapshot) *run {
	r := &run{
		engine:       e,
		graph:        g,
		prior:        prior,
		live:         map[graph.URN]*model.ResourceState{},
		invokes:      map[graph.URN]graph.PropertyMap{},
		providers:    map[graph.URN]providerdrv.Driver{},
		oldProviders: map[graph.URN]providerdrv.Driver{},
		outputs:      prior.Outputs.Copy(),
	}
	for _, st := range prior.Resources {
		r.live[st.URN] = st.Copy()
	}
	return r
}

type node struct {
	done chan struct{}
	ok   bool
}

// Execute applies plan. Replaced and removed resources are deleted first,
// dependents before their dependencies. Creates and updates then run in
// topological order with independent branches in parallel. The snapshot is
// checkpointed after every step. On failure the remaining steps are skipped
// and the snapshot reached so far is returned with the first error.
func (e *Engine) Execute(ctx context.Context, plan *Plan) (*model.Snapshot, error) {
	prior := plan.Prior
	if prior == nil {
		prior = model.NewSnapshot(plan.Graph.Stack())
	}
	r := e.newRun(plan.Graph, prior)
	log := logging.FromContext(ctx)

	steps := map[graph.URN]*Step{}
	for _, s := range plan.Steps {
		steps[s.URN] = s
	}

	// Phase 1: deletions in reverse recorded order.
	for i := len(prior.Resources) - 1; i >= 0; i-- {
		st := prior.Resources[i]
		s := steps[st.URN]
		if s == nil || (s.Op != OpReplace && s.Op != OpDelete) {
			continue
		}
		if err := r.observe(ctx, OpDelete, s, func() error { return r.delete(ctx, st) }); err != nil {
			return r.snapshot(), fmt.Errorf("delete %s: %w", st.URN, err)
		}
	}

	// Phase 2: creates and updates in graph order.
	nodes := map[graph.URN]*node{}
	var pending []*Step
	for _, s := range plan.Steps {
		if s.Op == OpDelete {
			continue
		}
		nodes[s.URN] = &node{done: make(chan struct{})}
		pending = append(pending, s)
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Parallel)
	for _, s := range pending {
		s := s
		eg.Go(func() error {
			n := nodes[s.URN]
			defer close(n.done)
			for _, dep := range s.Resource.Dependencies() {
				d, ok := nodes[dep]
				if !ok {
					continue
				}
				select {
				case <-d.done:
				case <-gctx.Done():
					r.skip(s)
					return nil
				}
				if !d.ok {
					r.skip(s)
					return nil
				}
			}
			if gctx.Err() != nil {
				r.skip(s)
				return nil
			}
			op := s.Op
			if op == OpReplace {
				op = OpCreate
			}
			if err := r.observe(gctx, op, s, func() error { return r.apply(gctx, s) }); err != nil {
				return fmt.Errorf("%s %s: %w", op, s.URN, err)
			}
			n.ok = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return r.snapshot(), err
	}
	if err := ctx.Err(); err != nil {
		return r.snapshot(), err
	}

	outs, err := resolveExports(plan.Graph, r.env())
	if err != nil {
		return r.snapshot(), err
	}
	if outs.ContainsUnknowns() {
		return r.snapshot(), fmt.Errorf("stack outputs: %w", ErrUnknownInputs)
	}
	r.mu.Lock()
	r.outputs = outs
	r.mu.Unlock()
	if err := r.checkpoint(ctx); err != nil {
		return r.snapshot(), err
	}
	log.Info(ctx, "update finished", "stack", plan.Graph.Stack(), "resources", len(r.live))
	return r.snapshot(), nil
}

// Destroy deletes every resource recorded in prior, dependents first.
// Protected resources fail the run before anything is deleted.
func (e *Engine) Destroy(ctx context.Context, prior *model.Snapshot) (*model.Snapshot, error) {
	for _, st := range prior.Resources {
		if st.Protect {
			return prior, fmt.Errorf("destroy %s: %w", st.URN, ErrProtected)
		}
	}
	r := e.newRun(nil, prior)
	for i := len(prior.Resources) - 1; i >= 0; i-- {
		st := prior.Resources[i]
		s := &Step{Op: OpDelete, URN: st.URN, Type: st.Type, Kind: st.Kind, Old: st}
		if err := r.observe(ctx, OpDelete, s, func() error { return r.delete(ctx, st) }); err != nil {
			return r.snapshot(), fmt.Errorf("delete %s: %w", st.URN, err)
		}
	}
	r.mu.Lock()
	r.outputs = nil
	r.mu.Unlock()
	if err := r.checkpoint(ctx); err != nil {
		return r.snapshot(), err
	}
	return r.snapshot(), nil
}

func (r *run) env() graph.Env {
	return env{graph: r.graph, values: r.values}
}

func (r *run) values(urn graph.URN) (string, graph.PropertyMap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if outs, ok := r.invokes[urn]; ok {
		return "", outs, true
	}
	st, ok := r.live[urn]
	if !ok {
		return "", nil, false
	}
	return st.ID, st.Outputs, true
}

func (r *run) current(urn graph.URN) *model.ResourceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[urn]
}

func (r *run) observe(ctx context.Context, op Op, s *Step, fn func() error) error {
	e := r.engine
	e.observer.OnEvent(Event{Type: EventStepStarted, Op: op, Step: s})
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	e.metrics.record(op, s.Type, err, elapsed)
	if err != nil {
		logging.FromContext(ctx).Warn(ctx, "step failed", "op", op, "urn", s.URN, "err", err)
		e.observer.OnEvent(Event{Type: EventStepFailed, Op: op, Step: s, Err: err, Elapsed: elapsed})
		return err
	}
	e.observer.OnEvent(Event{Type: EventStepDone, Op: op, Step: s, Elapsed: elapsed})
	return nil
}

func (r *run) skip(s *Step) {
	r.engine.observer.OnEvent(Event{Type: EventStepSkipped, Op: s.Op, Step: s})
}

// snapshot assembles the current state. Declared resources come in graph
// order, followed by recorded resources no longer declared.
func (r *run) snapshot() *model.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *run) snapshotLocked() *model.Snapshot {
	snap := &model.Snapshot{Stack: r.prior.Stack, Outputs: r.outputs.Copy(), UpdatedAt: time.Now().UTC()}
	seen := map[graph.URN]bool{}
	if r.graph != nil {
		for _, res := range r.graph.Resources() {
			if st, ok := r.live[res.URN()]; ok {
				snap.Resources = append(snap.Resources, st.Copy())
				seen[res.URN()] = true
			}
		}
	}
	for _, old := range r.prior.Resources {
		if seen[old.URN] {
			continue
		}
		if st, ok := r.live[old.URN]; ok {
			snap.Resources = append(snap.Resources, st.Copy())
		}
	}
	return snap
}

// checkpoint saves the current state. It runs even after the update context
// was canceled so finished steps are never lost.
func (r *run) checkpoint(ctx context.Context) error {
	if r.engine.store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.engine.store.Save(context.WithoutCancel(ctx), r.snapshotLocked()); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func (r *run) commit(ctx context.Context, st *model.ResourceState) error {
	r.mu.Lock()
	r.live[st.URN] = st
	r.mu.Unlock()
	return r.checkpoint(ctx)
}

func (r *run) delete(ctx context.Context, st *model.ResourceState) error {
	if st.Protect {
		return ErrProtected
	}
	if st.Kind == graph.KindResource {
		d, err := r.engine.driverForState(ctx, st, r.current, r.oldProviders)
		if err != nil {
			return err
		}
		err = d.Delete(ctx, &providerdrv.DeleteRequest{
			URN:     st.URN,
			Type:    st.Type,
			ID:      st.ID,
			Inputs:  st.Inputs,
			Outputs: st.Outputs,
		})
		if err != nil {
			return err
		}
	}
	r.mu.Lock()
	delete(r.live, st.URN)
	r.mu.Unlock()
	return r.checkpoint(ctx)
}

func (r *run) driverFor(ctx context.Context, res *graph.Resource) (providerdrv.Driver, error) {
	prov := res.Provider()
	if prov == nil {
		return r.engine.drivers.Default(ctx, res.Package())
	}
	r.mu.Lock()
	d, ok := r.providers[prov.URN()]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", prov.URN(), providerdrv.ErrNotConfigured)
	}
	return d, nil
}

func newState(res *graph.Resource, inputs graph.PropertyMap, old *model.ResourceState) *model.ResourceState {
	now := time.Now().UTC()
	st := &model.ResourceState{
		URN:          res.URN(),
		Type:         res.Type(),
		Kind:         res.Kind(),
		Inputs:       inputs,
		Outputs:      graph.PropertyMap{},
		Dependencies: res.Dependencies(),
		Protect:      res.Protected(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p := res.Provider(); p != nil {
		st.Provider = p.URN()
	}
	if old != nil {
		st.ID = old.ID
		st.Outputs = old.Outputs
		st.CreatedAt = old.CreatedAt
	}
	return st
}

func (r *run) apply(ctx context.Context, s *Step) error {
	res := s.Resource
	inputs, err := graph.ResolveProps(res.Inputs(), r.env())
	if err != nil {
		return err
	}
	if inputs.ContainsUnknowns() {
		return ErrUnknownInputs
	}
	old := r.current(res.URN())

	switch res.Kind() {
	case graph.KindInvoke:
		d, err := r.driverFor(ctx, res)
		if err != nil {
			return err
		}
		outs, err := d.Invoke(ctx, res.Type(), inputs)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.invokes[res.URN()] = markSecretOutputs(res, outs)
		r.mu.Unlock()
		return nil

	case graph.KindProvider:
		d, err := r.engine.drivers.Configure(ctx, res.Package(), inputs)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.providers[res.URN()] = d
		r.mu.Unlock()
		st := newState(res, inputs, old)
		if old == nil {
			st.ID = uuid.NewString()
		}
		return r.commit(ctx, st)
	}

	d, err := r.driverFor(ctx, res)
	if err != nil {
		return err
	}
	if err := d.Check(ctx, res.Type(), inputs); err != nil {
		return err
	}
	if old == nil {
		resp, err := d.Create(ctx, &providerdrv.CreateRequest{
			URN:    res.URN(),
			Type:   res.Type(),
			Name:   res.Name(),
			Inputs: inputs,
		})
		if err != nil {
			return err
		}
		st := newState(res, inputs, nil)
		st.ID = resp.ID
		st.Outputs = markSecretOutputs(res, resp.Outputs)
		return r.commit(ctx, st)
	}
	if old.Type != res.Type() {
		return fmt.Errorf("%w: type changed from %s", ErrUnplannedReplace, old.Type)
	}
	diff, err := d.Diff(ctx, res.Type(), old.Inputs, inputs)
	if err != nil {
		return err
	}
	if diff.RequiresReplace() {
		return fmt.Errorf("%w: %v", ErrUnplannedReplace, diff.Replaces)
	}
	st := newState(res, inputs, old)
	if !diff.HasChanges() {
		st.Inputs = old.Inputs
		st.UpdatedAt = old.UpdatedAt
		return r.commit(ctx, st)
	}
	outs, err := d.Update(ctx, &providerdrv.UpdateRequest{
		URN:        res.URN(),
		Type:       res.Type(),
		Name:       res.Name(),
		ID:         old.ID,
		OldInputs:  old.Inputs,
		OldOutputs: old.Outputs,
		Inputs:     inputs,
	})
	if err != nil {
		return err
	}
	st.Outputs = markSecretOutputs(res, outs)
	return r.commit(ctx, st)
}
