package stack

import (
	"context"
	"fmt"

	"github.com/kompox/aksgraph/domain"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
	"github.com/kompox/aksgraph/engine"
)

// UpInput represents a command to update a stack.
type UpInput struct {
	Stack string `json:"stack"`
}

// UpOutput carries the executed plan and the resulting snapshot.
type UpOutput struct {
	Plan     *engine.Plan
	Snapshot *model.Snapshot
}

// Up plans and executes an update. The snapshot is returned even when the
// update fails part way. A stack declaring secrets fails before any step
// runs when the repository cannot store them.
func (u *UseCase) Up(ctx context.Context, in *UpInput) (*UpOutput, error) {
	g, err := u.build(in.Stack)
	if err != nil {
		return nil, err
	}
	if s, ok := u.Repos.Snapshot.(domain.SecretStore); ok && !s.CanStoreSecrets() && g.HasSecrets() {
		return nil, fmt.Errorf("stack %s: %w", in.Stack, graph.ErrNoCrypter)
	}
	prior, err := u.prior(ctx, in.Stack)
	if err != nil {
		return nil, err
	}
	plan, err := u.Engine.Plan(ctx, g, prior)
	if err != nil {
		return nil, err
	}
	snap, err := u.Engine.Execute(ctx, plan)
	return &UpOutput{Plan: plan, Snapshot: snap}, err
}
