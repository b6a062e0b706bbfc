package stack

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
)

func (u *UseCase) build(stack string) (*graph.Graph, error) {
	if stack == "" {
		return nil, fmt.Errorf("%w: empty stack name", model.ErrStackInvalid)
	}
	g := graph.New(u.Project, stack)
	if err := u.Declare(g); err != nil {
		return nil, fmt.Errorf("declare: %w", err)
	}
	return g, nil
}

// prior returns the recorded snapshot of stack or an empty one.
func (u *UseCase) prior(ctx context.Context, stack string) (*model.Snapshot, error) {
	snap, err := u.Repos.Snapshot.Get(ctx, stack)
	if errors.Is(err, model.ErrStackNotFound) {
		return model.NewSnapshot(stack), nil
	}
	return snap, err
}
