// Package kubernetes declares Kubernetes objects and Helm releases that are
// reconciled through an explicit cluster connection.
package kubernetes

import (
	"errors"
	"fmt"
	"strings"

	kubedrv "github.com/kompox/aksgraph/adapters/drivers/provider/kubernetes"
	"github.com/kompox/aksgraph/domain/graph"
)

var (
	// ErrProviderRequired is returned when a declaration has no connection.
	ErrProviderRequired = errors.New("kubernetes declarations require a provider")
	// ErrChartRequired is returned for releases without chart name.
	ErrChartRequired = errors.New("release chart must not be empty")
)

// ProviderArgs configure a cluster connection.
type ProviderArgs struct {
	// Kubeconfig is the plaintext kubeconfig. It is always treated as
	// sensitive.
	Kubeconfig graph.Output[string]
	// Namespace is the default namespace for namespaced objects.
	Namespace string
}

// Provider is a declared cluster connection.
type Provider struct {
	*graph.Resource
}

// NewProvider declares a cluster connection.
func NewProvider(g *graph.Graph, name string, args *ProviderArgs, opts ...graph.ResourceOption) (*Provider, error) {
	if args == nil || args.Kubeconfig.IsZero() {
		return nil, fmt.Errorf("provider %q: kubeconfig is required", name)
	}
	props := graph.Props{"kubeconfig": graph.ToSecret(args.Kubeconfig)}
	if args.Namespace != "" {
		props.Set("namespace", graph.Val(args.Namespace))
	}
	r, err := g.RegisterProvider(kubedrv.Package, name, props, opts...)
	if err != nil {
		return nil, err
	}
	return &Provider{Resource: r}, nil
}

// NamespaceArgs are the inputs of a namespace. An unset name defaults to an
// autoname of the logical name.
type NamespaceArgs struct {
	Name        graph.Output[string]
	Labels      map[string]string
	Annotations map[string]string
}

// Namespace is a declared namespace.
type Namespace struct {
	*graph.Resource
	MetadataName graph.Output[string]
}

// NewNamespace declares a namespace reconciled through provider.
func NewNamespace(g *graph.Graph, name string, args *NamespaceArgs, provider *Provider, opts ...graph.ResourceOption) (*Namespace, error) {
	if provider == nil || provider.Resource == nil {
		return nil, fmt.Errorf("namespace %q: %w", name, ErrProviderRequired)
	}
	if args == nil {
		args = &NamespaceArgs{}
	}
	meta := graph.Props{}
	meta.Set("name", args.Name)
	if len(args.Labels) > 0 {
		meta.Set("labels", graph.Val(args.Labels))
	}
	if len(args.Annotations) > 0 {
		meta.Set("annotations", graph.Val(args.Annotations))
	}
	props := graph.Props{"metadata": graph.Object(meta)}
	opts = append(opts, graph.WithProvider(provider.Resource))
	r, err := g.Register(kubedrv.TypeNamespace, name, props, opts...)
	if err != nil {
		return nil, err
	}
	return &Namespace{
		Resource:     r,
		MetadataName: graph.OutputOf[string](r, "metadata.name"),
	}, nil
}

// ReleaseArgs are the inputs of a Helm release.
type ReleaseArgs struct {
	// Name is the release name; it defaults to an autoname.
	Name            graph.Output[string]
	Chart           string
	Version         string
	RepositoryURL   string
	Namespace       graph.Output[string]
	CreateNamespace bool
	Values          map[string]any
}

// Release is a declared Helm release.
type Release struct {
	*graph.Resource
	Name      graph.Output[string]
	Namespace graph.Output[string]
	Status    graph.Output[string]
}

// NewRelease declares a Helm release reconciled through provider.
func NewRelease(g *graph.Graph, name string, args *ReleaseArgs, provider *Provider, opts ...graph.ResourceOption) (*Release, error) {
	if provider == nil || provider.Resource == nil {
		return nil, fmt.Errorf("release %q: %w", name, ErrProviderRequired)
	}
	if args == nil || strings.TrimSpace(args.Chart) == "" {
		return nil, fmt.Errorf("release %q: %w", name, ErrChartRequired)
	}
	props := graph.Props{
		"chart":           graph.Val(args.Chart),
		"createNamespace": graph.Val(args.CreateNamespace),
	}
	props.Set("name", args.Name)
	props.Set("namespace", args.Namespace)
	if args.Version != "" {
		props.Set("version", graph.Val(args.Version))
	}
	if args.RepositoryURL != "" {
		props.Set("repositoryOpts", graph.Val(map[string]any{"repo": args.RepositoryURL}))
	}
	if args.Values != nil {
		props.Set("values", graph.Val(args.Values))
	}
	opts = append(opts, graph.WithProvider(provider.Resource))
	r, err := g.Register(kubedrv.TypeRelease, name, props, opts...)
	if err != nil {
		return nil, err
	}
	return &Release{
		Resource:  r,
		Name:      graph.OutputOf[string](r, "name"),
		Namespace: graph.OutputOf[string](r, "namespace"),
		Status:    graph.OutputOf[string](r, "status"),
	}, nil
}
