// Package engine reconciles a desired-state graph against recorded state.
// It plans the steps needed to move from a snapshot to the graph, executes
// them through provider drivers and checkpoints the snapshot after every step.
package engine

import (
	"context"
	"errors"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
)

var (
	// ErrUnplannedReplace is returned when a resource planned for an in-place
	// update turns out to require replacement at execution time.
	ErrUnplannedReplace = errors.New("resource requires replacement that was not planned")
	// ErrProtected is returned when a protected resource would be deleted.
	ErrProtected = errors.New("resource is protected")
	// ErrUnknownInputs is returned when inputs are still unknown at execution.
	ErrUnknownInputs = errors.New("inputs contain unknown values")
	// ErrStackMismatch is returned when a snapshot belongs to another stack.
	ErrStackMismatch = errors.New("snapshot belongs to a different stack")
)

// DefaultParallel is the default number of concurrent steps.
const DefaultParallel = 4

// Drivers resolves provider drivers. Default returns the driver of a package
// configured from ambient settings; Configure returns one configured from the
// inputs of an explicit provider resource.
type Drivers interface {
	Default(ctx context.Context, pkg string) (providerdrv.Driver, error)
	Configure(ctx context.Context, pkg string, inputs graph.PropertyMap) (providerdrv.Driver, error)
}

// Checkpointer persists intermediate snapshots.
type Checkpointer interface {
	Save(ctx context.Context, s *model.Snapshot) error
}

// Options configure an Engine.
type Options struct {
	// Parallel bounds the number of concurrently executing steps.
	Parallel int
	// Observer receives step events. May be nil.
	Observer Observer
}

// Engine plans and executes updates.
type Engine struct {
	drivers  Drivers
	store    Checkpointer
	opts     Options
	metrics  *Metrics
	observer Observer
}

// New returns an Engine. store may be nil, in which case no checkpoints are
// written.
func New(drivers Drivers, store Checkpointer, opts Options) *Engine {
	if opts.Parallel <= 0 {
		opts.Parallel = DefaultParallel
	}
	obs := opts.Observer
	if obs == nil {
		obs = ObserverFunc(func(Event) {})
	}
	return &Engine{
		drivers:  drivers,
		store:    store,
		opts:     opts,
		metrics:  NewMetrics(),
		observer: obs,
	}
}

// Metrics returns the step metrics collected by e.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// driverForState returns the driver that manages a recorded resource. The
// recorded inputs of its provider are used so deletions reach the
// infrastructure the resource was created with.
func (e *Engine) driverForState(ctx context.Context, st *model.ResourceState, live func(graph.URN) *model.ResourceState, cache map[graph.URN]providerdrv.Driver) (providerdrv.Driver, error) {
	pkg := graph.PackageOf(st.Type)
	if st.Provider == "" {
		return e.drivers.Default(ctx, pkg)
	}
	if d, ok := cache[st.Provider]; ok {
		return d, nil
	}
	ps := live(st.Provider)
	if ps == nil {
		return e.drivers.Default(ctx, pkg)
	}
	d, err := e.drivers.Configure(ctx, pkg, ps.Inputs)
	if err != nil {
		return nil, err
	}
	cache[st.Provider] = d
	return d, nil
}
