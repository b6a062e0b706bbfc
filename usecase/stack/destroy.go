package stack

import (
	"context"

	"github.com/kompox/aksgraph/domain/model"
)

// DestroyInput represents a command to destroy every resource of a stack.
type DestroyInput struct {
	Stack string `json:"stack"`
	// Remove deletes the stack record after a successful destroy.
	Remove bool `json:"remove"`
}

// DestroyOutput reports what was deleted.
type DestroyOutput struct {
	Deleted  int
	Snapshot *model.Snapshot
}

// Destroy deletes all recorded resources, dependents first.
func (u *UseCase) Destroy(ctx context.Context, in *DestroyInput) (*DestroyOutput, error) {
	if in.Stack == "" {
		return nil, model.ErrStackInvalid
	}
	prior, err := u.Repos.Snapshot.Get(ctx, in.Stack)
	if err != nil {
		return nil, err
	}
	snap, err := u.Engine.Destroy(ctx, prior)
	out := &DestroyOutput{Deleted: len(prior.Resources) - len(snap.Resources), Snapshot: snap}
	if err != nil {
		return out, err
	}
	if in.Remove {
		if err := u.Repos.Snapshot.Delete(ctx, in.Stack); err != nil {
			return out, err
		}
	}
	return out, nil
}
