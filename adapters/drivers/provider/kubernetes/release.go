package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/adapters/kube"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/naming"
)

var releaseReplaceKeys = []string{"name", "namespace"}

var errEmptyChart = errors.New("release chart must not be empty")

type repositoryOpts struct {
	Repo string `json:"repo"`
}

type releaseInputs struct {
	Name            string         `json:"name"`
	Chart           string         `json:"chart"`
	Version         string         `json:"version"`
	Namespace       string         `json:"namespace"`
	CreateNamespace bool           `json:"createNamespace"`
	RepositoryOpts  repositoryOpts `json:"repositoryOpts"`
	Values          map[string]any `json:"values"`
}

func checkRelease(inputs graph.PropertyMap) error {
	var in releaseInputs
	if err := providerdrv.DecodeInputs(inputs, &in); err != nil {
		return err
	}
	if v, ok := inputs["chart"]; !ok || !graph.IsComputed(v) {
		if strings.TrimSpace(in.Chart) == "" {
			return errEmptyChart
		}
	}
	if in.Name != "" {
		if err := naming.ValidateReleaseName(in.Name); err != nil {
			return err
		}
	}
	if in.Namespace != "" {
		if err := naming.ValidateNamespaceName(in.Namespace); err != nil {
			return err
		}
	}
	return nil
}

// helmRelease maps inputs onto a Helm release. Name and namespace fall back
// to an autoname and the provider default namespace.
func helmRelease(in *releaseInputs, logical string, urn graph.URN, defaultNamespace string) *kube.HelmRelease {
	name := in.Name
	if name == "" {
		name = naming.Autoname(logical, string(urn), naming.ReleaseMaxLength)
	}
	ns := in.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	if ns == "" {
		ns = "default"
	}
	return &kube.HelmRelease{
		Name:            name,
		Namespace:       ns,
		Chart:           in.Chart,
		RepoURL:         in.RepositoryOpts.Repo,
		Version:         in.Version,
		CreateNamespace: in.CreateNamespace,
		Values:          kube.HelmValues(in.Values),
	}
}

func releaseID(ns, name string) string { return ns + "/" + name }

func releaseOutputs(s *kube.HelmReleaseStatus, chart string) graph.PropertyMap {
	return graph.PropertyMap{
		"name":       s.Name,
		"namespace":  s.Namespace,
		"chart":      chart,
		"status":     s.Status,
		"revision":   float64(s.Revision),
		"version":    s.ChartVersion,
		"appVersion": s.AppVersion,
	}
}

func releaseCreate(ctx context.Context, c *kube.Client, req *providerdrv.CreateRequest, defaultNamespace string) (*providerdrv.CreateResponse, error) {
	var in releaseInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	if err := checkRelease(req.Inputs); err != nil {
		return nil, err
	}
	r := helmRelease(&in, req.Name, req.URN, defaultNamespace)
	s, err := c.HelmInstall(ctx, r)
	if err != nil {
		return nil, err
	}
	return &providerdrv.CreateResponse{ID: releaseID(s.Namespace, s.Name), Outputs: releaseOutputs(s, r.Chart)}, nil
}

func releaseUpdate(ctx context.Context, c *kube.Client, req *providerdrv.UpdateRequest) (graph.PropertyMap, error) {
	var in releaseInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	ns, name, ok := strings.Cut(req.ID, "/")
	if !ok {
		return nil, fmt.Errorf("invalid release ID %q", req.ID)
	}
	r := helmRelease(&in, req.Name, req.URN, ns)
	r.Name, r.Namespace = name, ns
	s, err := c.HelmUpgrade(ctx, r)
	if err != nil {
		return nil, err
	}
	return releaseOutputs(s, r.Chart), nil
}
