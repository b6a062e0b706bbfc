package stack

import (
	"context"
	"io"

	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
)

// OutputsInput represents a command to read stack outputs.
type OutputsInput struct {
	Stack       string `json:"stack"`
	ShowSecrets bool   `json:"show_secrets"`
}

// OutputsOutput holds the stack outputs. Secret values are masked unless
// requested.
type OutputsOutput struct {
	Outputs map[string]any `json:"outputs"`
}

// Outputs returns the recorded stack outputs.
func (u *UseCase) Outputs(ctx context.Context, in *OutputsInput) (*OutputsOutput, error) {
	if in.Stack == "" {
		return nil, model.ErrStackInvalid
	}
	snap, err := u.Repos.Snapshot.Get(ctx, in.Stack)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for k, v := range snap.Outputs {
		if s, ok := v.(graph.Secret); ok && !in.ShowSecrets {
			out[k] = s.String()
			continue
		}
		out[k] = graph.Plain(v)
	}
	return &OutputsOutput{Outputs: out}, nil
}

// GraphInput represents a command to render the declared graph.
type GraphInput struct {
	Stack string `json:"stack"`
}

// Graph writes the declared graph of the stack to w in DOT format.
func (u *UseCase) Graph(_ context.Context, in *GraphInput, w io.Writer) error {
	g, err := u.build(in.Stack)
	if err != nil {
		return err
	}
	return g.WriteDOT(w)
}
