// Package azure declares azure-native resources in a graph.
package azure

import (
	"errors"
	"fmt"

	azuredrv "github.com/kompox/aksgraph/adapters/drivers/provider/azure"
	"github.com/kompox/aksgraph/domain/graph"
)

// ErrInvalidArgs is returned for declarations missing required fields.
var ErrInvalidArgs = errors.New("invalid arguments")

// ResourceGroupArgs are the inputs of a resource group. All fields are
// optional; the name defaults to an autoname of the logical name.
type ResourceGroupArgs struct {
	ResourceGroupName graph.Output[string]
	Location          graph.Output[string]
	Tags              map[string]string
}

// ResourceGroup is a declared resource group.
type ResourceGroup struct {
	*graph.Resource
	Name     graph.Output[string]
	Location graph.Output[string]
}

// NewResourceGroup declares a resource group.
func NewResourceGroup(g *graph.Graph, name string, args *ResourceGroupArgs, opts ...graph.ResourceOption) (*ResourceGroup, error) {
	if args == nil {
		args = &ResourceGroupArgs{}
	}
	props := graph.Props{}
	props.Set("resourceGroupName", args.ResourceGroupName)
	props.Set("location", args.Location)
	if len(args.Tags) > 0 {
		props.Set("tags", graph.Val(args.Tags))
	}
	r, err := g.Register(azuredrv.TypeResourceGroup, name, props, opts...)
	if err != nil {
		return nil, err
	}
	return &ResourceGroup{
		Resource: r,
		Name:     graph.OutputOf[string](r, "name"),
		Location: graph.OutputOf[string](r, "location"),
	}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgs, fmt.Sprintf(format, args...))
}
