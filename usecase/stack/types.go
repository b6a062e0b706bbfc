// Package stack implements the operator use cases of a stack: preview,
// update, destroy and output inspection.
package stack

import (
	"io"

	"github.com/kompox/aksgraph/domain"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/engine"
)

// Repos holds repositories needed for stack use cases.
type Repos struct {
	Snapshot domain.SnapshotRepository
}

// Close releases the repositories that hold resources.
func (r *Repos) Close() error {
	if r == nil {
		return nil
	}
	if c, ok := r.Snapshot.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DeclareFunc registers the desired state of stack in g.
type DeclareFunc func(g *graph.Graph) error

// UseCase wires repositories, the engine and the program.
type UseCase struct {
	Repos   *Repos
	Engine  *engine.Engine
	Project string
	Declare DeclareFunc
}
