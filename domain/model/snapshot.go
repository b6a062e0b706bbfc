package model

import (
	"time"

	"github.com/kompox/aksgraph/domain/graph"
)

// ResourceState is the recorded result of reconciling one declaration.
type ResourceState struct {
	URN          graph.URN         `json:"urn"`
	Type         string            `json:"type"`
	Kind         graph.Kind        `json:"kind"`
	ID           string            `json:"id"`
	Inputs       graph.PropertyMap `json:"inputs"`
	Outputs      graph.PropertyMap `json:"outputs"`
	Dependencies []graph.URN       `json:"dependencies,omitempty"`
	Provider     graph.URN         `json:"provider,omitempty"`
	Protect      bool              `json:"protect,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Copy returns a deep copy of s.
func (s *ResourceState) Copy() *ResourceState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Inputs = s.Inputs.Copy()
	cp.Outputs = s.Outputs.Copy()
	cp.Dependencies = append([]graph.URN(nil), s.Dependencies...)
	return &cp
}

// Snapshot is the persisted state of a stack. Resources are kept in
// dependency order: every resource appears after the resources it depends on.
type Snapshot struct {
	Stack     string            `json:"stack"`
	Resources []*ResourceState  `json:"resources"`
	Outputs   graph.PropertyMap `json:"outputs,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewSnapshot returns an empty snapshot for stack.
func NewSnapshot(stack string) *Snapshot {
	return &Snapshot{Stack: stack}
}

// Find returns the state of urn or nil.
func (s *Snapshot) Find(urn graph.URN) *ResourceState {
	if s == nil {
		return nil
	}
	for _, r := range s.Resources {
		if r.URN == urn {
			return r
		}
	}
	return nil
}

// Copy returns a deep copy of s.
func (s *Snapshot) Copy() *Snapshot {
	if s == nil {
		return nil
	}
	cp := &Snapshot{Stack: s.Stack, Outputs: s.Outputs.Copy(), UpdatedAt: s.UpdatedAt}
	for _, r := range s.Resources {
		cp.Resources = append(cp.Resources, r.Copy())
	}
	return cp
}
