package stack

import (
	"context"

	"github.com/kompox/aksgraph/engine"
)

// PreviewInput represents a command to preview an update.
type PreviewInput struct {
	Stack string `json:"stack"`
}

// PreviewOutput carries the computed plan.
type PreviewOutput struct {
	Plan *engine.Plan
}

// Preview plans an update without changing anything.
func (u *UseCase) Preview(ctx context.Context, in *PreviewInput) (*PreviewOutput, error) {
	g, err := u.build(in.Stack)
	if err != nil {
		return nil, err
	}
	prior, err := u.prior(ctx, in.Stack)
	if err != nil {
		return nil, err
	}
	plan, err := u.Engine.Plan(ctx, g, prior)
	if err != nil {
		return nil, err
	}
	return &PreviewOutput{Plan: plan}, nil
}
