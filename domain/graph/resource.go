package graph

import (
	"sort"
	"strings"
)

// Kind distinguishes the declarations a Graph can hold.
type Kind int

const (
	// KindResource is a managed resource with a create/update/delete lifecycle.
	KindResource Kind = iota
	// KindProvider is an explicit provider configuration, e.g. a connection
	// to a Kubernetes API server built from a kubeconfig.
	KindProvider
	// KindInvoke is a read-only function call evaluated on every update.
	KindInvoke
)

func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindInvoke:
		return "invoke"
	default:
		return "resource"
	}
}

const providerTypePrefix = "aksgraph:providers:"

// ProviderType returns the type token of an explicit provider for pkg.
func ProviderType(pkg string) string { return providerTypePrefix + pkg }

// Resource is a registered declaration.
type Resource struct {
	urn       URN
	typ       string
	name      string
	kind      Kind
	props     Props
	provider  *Resource
	dependsOn []*Resource
	protect   bool
	secrets   map[string]bool
	index     int
}

// URN returns the unique identifier of r.
func (r *Resource) URN() URN { return r.urn }

// Type returns the type token of r.
func (r *Resource) Type() string { return r.typ }

// Name returns the logical name of r.
func (r *Resource) Name() string { return r.name }

// Kind returns the kind of r.
func (r *Resource) Kind() Kind { return r.kind }

// Package returns the provider package that reconciles r.
func (r *Resource) Package() string { return PackageOf(r.typ) }

// Inputs returns the declared inputs of r.
func (r *Resource) Inputs() Props { return r.props }

// Provider returns the explicit provider of r, or nil for the default one.
func (r *Resource) Provider() *Resource { return r.provider }

// Protected reports whether deleting r must fail.
func (r *Resource) Protected() bool { return r.protect }

// Dependencies returns every URN r depends on: input references, the
// explicit provider and DependsOn entries.
func (r *Resource) Dependencies() []URN {
	var deps []URN
	for _, k := range sortedKeys(r.props) {
		deps = mergeURNs(deps, r.props[k].Dependencies())
	}
	if r.provider != nil {
		deps = mergeURNs(deps, []URN{r.provider.urn})
	}
	for _, d := range r.dependsOn {
		deps = mergeURNs(deps, []URN{d.urn})
	}
	return deps
}

// IsSecretOutput reports whether the output at path is always sensitive.
func (r *Resource) IsSecretOutput(path string) bool {
	if r.secrets[path] {
		return true
	}
	if top, _, ok := strings.Cut(path, "."); ok {
		return r.secrets[top]
	}
	return false
}

// ID returns the provider assigned ID of r.
func (r *Resource) ID() Output[string] { return lookupOutput[string](r.urn, "id", false) }

// OutputOf returns the output at path of r converted to T.
func OutputOf[T any](r *Resource, path string) Output[T] {
	return lookupOutput[T](r.urn, path, r.IsSecretOutput(path))
}

// ResourceOption customizes a declaration.
type ResourceOption func(*Resource)

// WithProvider reconciles the declaration through an explicit provider.
func WithProvider(p *Resource) ResourceOption {
	return func(r *Resource) { r.provider = p }
}

// DependsOn adds ordering edges that are not expressed through inputs.
func DependsOn(deps ...*Resource) ResourceOption {
	return func(r *Resource) { r.dependsOn = append(r.dependsOn, deps...) }
}

// Protect makes deleting the declaration an error.
func Protect(v bool) ResourceOption {
	return func(r *Resource) { r.protect = v }
}

// AdditionalSecretOutputs marks outputs as always sensitive.
func AdditionalSecretOutputs(paths ...string) ResourceOption {
	return func(r *Resource) {
		for _, p := range paths {
			r.secrets[p] = true
		}
	}
}

func sortedKeys(p Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
