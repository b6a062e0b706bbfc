package kubernetes

import (
	"errors"
	"testing"

	"github.com/kompox/aksgraph/domain/graph"
)

func TestDeclarationsRequireProvider(t *testing.T) {
	g := graph.New("p", "dev")
	if _, err := NewNamespace(g, "ns", nil, nil); !errors.Is(err, ErrProviderRequired) {
		t.Errorf("expected ErrProviderRequired, got %v", err)
	}
	if _, err := NewRelease(g, "nginx", &ReleaseArgs{Chart: "ingress-nginx"}, nil); !errors.Is(err, ErrProviderRequired) {
		t.Errorf("expected ErrProviderRequired, got %v", err)
	}

	// a provider from another graph is an ordering error
	other := graph.New("p", "dev")
	foreign, err := NewProvider(other, "provider", &ProviderArgs{Kubeconfig: graph.Val("apiVersion: v1")})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if _, err := NewNamespace(g, "ns", nil, foreign); !errors.Is(err, graph.ErrUnknownReference) {
		t.Errorf("expected ErrUnknownReference, got %v", err)
	}
}

func TestNewRelease(t *testing.T) {
	g := graph.New("p", "dev")
	p, err := NewProvider(g, "provider", &ProviderArgs{Kubeconfig: graph.Val("apiVersion: v1")})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if !p.Inputs()["kubeconfig"].IsSecret() {
		t.Errorf("kubeconfig input must be secret")
	}
	if _, err := NewRelease(g, "nginx", &ReleaseArgs{Chart: " "}, p); !errors.Is(err, ErrChartRequired) {
		t.Errorf("expected ErrChartRequired, got %v", err)
	}

	ns, err := NewNamespace(g, "ns", &NamespaceArgs{Name: graph.Val("ingress-nginx")}, p)
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	rel, err := NewRelease(g, "nginx", &ReleaseArgs{
		Chart:         "ingress-nginx",
		Version:       "4.7.1",
		RepositoryURL: "https://kubernetes.github.io/ingress-nginx",
		Namespace:     ns.MetadataName,
	}, p)
	if err != nil {
		t.Fatalf("NewRelease: %v", err)
	}
	deps := rel.Dependencies()
	if len(deps) != 2 {
		t.Fatalf("expected namespace and provider dependencies, got %v", deps)
	}
	if rel.Provider() != p.Resource {
		t.Errorf("release must use the explicit provider")
	}
	props, err := graph.ResolveProps(ns.Inputs(), nil)
	if err != nil {
		t.Fatalf("ResolveProps: %v", err)
	}
	if v, _, _ := props.Path("metadata.name"); v != "ingress-nginx" {
		t.Errorf("metadata.name = %v", v)
	}
}
