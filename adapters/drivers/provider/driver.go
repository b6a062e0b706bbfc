package providerdrv

import (
	"context"
	"errors"

	"github.com/kompox/aksgraph/domain/graph"
)

var (
	// ErrUnknownType is returned for type tokens a driver does not handle.
	ErrUnknownType = errors.New("unknown resource type")
	// ErrNotConfigured is returned when an operation needs a connection the
	// driver was not configured with.
	ErrNotConfigured = errors.New("driver is not configured")
)

// CreateRequest asks a driver to create a resource.
type CreateRequest struct {
	URN    graph.URN
	Type   string
	Name   string
	Inputs graph.PropertyMap
}

// CreateResponse carries the provider assigned ID and outputs.
type CreateResponse struct {
	ID      string
	Outputs graph.PropertyMap
}

// UpdateRequest asks a driver to update a resource in place.
type UpdateRequest struct {
	URN        graph.URN
	Type       string
	Name       string
	ID         string
	OldInputs  graph.PropertyMap
	OldOutputs graph.PropertyMap
	Inputs     graph.PropertyMap
}

// DeleteRequest asks a driver to delete a resource.
type DeleteRequest struct {
	URN     graph.URN
	Type    string
	ID      string
	Inputs  graph.PropertyMap
	Outputs graph.PropertyMap
}

// DiffResult describes how new inputs differ from recorded ones.
type DiffResult struct {
	// Changes lists changed top-level input keys.
	Changes []string
	// Replaces lists changed keys that cannot be updated in place.
	Replaces []string
}

// HasChanges reports whether any input changed.
func (d *DiffResult) HasChanges() bool { return d != nil && len(d.Changes) > 0 }

// RequiresReplace reports whether the resource must be destroyed and recreated.
func (d *DiffResult) RequiresReplace() bool { return d != nil && len(d.Replaces) > 0 }

// Driver reconciles the resource types of one provider package against an
// external API. Inputs may contain graph.Secret values; during previews they
// may contain graph.Computed values, which Check and Diff must tolerate.
type Driver interface {
	// ID returns the provider package (e.g., "azure-native").
	ID() string

	// Check validates inputs of typ without contacting the external API.
	Check(ctx context.Context, typ string, inputs graph.PropertyMap) error

	// Diff compares recorded and desired inputs.
	Diff(ctx context.Context, typ string, olds, news graph.PropertyMap) (*DiffResult, error)

	Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error)
	Update(ctx context.Context, req *UpdateRequest) (graph.PropertyMap, error)
	Delete(ctx context.Context, req *DeleteRequest) error

	// Invoke runs a read-only function such as a credential listing.
	Invoke(ctx context.Context, token string, args graph.PropertyMap) (graph.PropertyMap, error)
}

// ConfigDiffer is implemented by drivers that can tell whether a change to
// an explicit provider's inputs still addresses the same infrastructure.
// Replaces in the result replace the provider and every resource it manages.
// Drivers without it have every provider input change treated as a replace.
type ConfigDiffer interface {
	DiffConfig(ctx context.Context, olds, news graph.PropertyMap) (*DiffResult, error)
}
