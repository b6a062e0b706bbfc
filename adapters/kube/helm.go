package kube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	helmdriver "helm.sh/helm/v3/pkg/storage/driver"
)

// HelmValues represents Helm chart values as a generic map.
// Keep it simple to interop with Helm SDK (chartutil.Values).
type HelmValues map[string]any

// HelmTimeout bounds install, upgrade and uninstall operations.
var HelmTimeout = 5 * time.Minute

// ErrReleaseExists is returned by HelmInstall when a release of the same
// name is already deployed.
var ErrReleaseExists = errors.New("helm release already exists")

// HelmRelease describes a chart installation.
type HelmRelease struct {
	Name            string
	Namespace       string
	Chart           string
	RepoURL         string
	Version         string
	CreateNamespace bool
	Values          HelmValues
}

// HelmReleaseStatus is the observed state of a release.
type HelmReleaseStatus struct {
	Name         string
	Namespace    string
	Status       string
	Revision     int
	ChartVersion string
	AppVersion   string
}

// helmTimeout returns HelmTimeout shortened to the deadline of ctx.
func helmTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < HelmTimeout {
			return left
		}
	}
	return HelmTimeout
}

func (c *Client) helmConfig(namespace string) (*action.Configuration, error) {
	if c == nil || len(c.Kubeconfig) == 0 {
		return nil, fmt.Errorf("kubeconfig is required for Helm operations")
	}
	cfg := new(action.Configuration)
	getter := NewInMemoryRESTClientGetter(c.Kubeconfig, namespace)
	if err := cfg.Init(getter, namespace, "secret", func(format string, v ...any) {}); err != nil {
		return nil, fmt.Errorf("init helm configuration: %w", err)
	}
	return cfg, nil
}

func loadChart(r *HelmRelease) (*chart.Chart, error) {
	settings := cli.New()
	cpo := action.ChartPathOptions{RepoURL: r.RepoURL, Version: r.Version}
	chartPath, err := cpo.LocateChart(r.Chart, settings)
	if err != nil {
		return nil, fmt.Errorf("locate chart %s: %w", r.Chart, err)
	}
	ch, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("load chart %s: %w", r.Chart, err)
	}
	return ch, nil
}

// HelmInstall installs a new release and waits for its resources to become
// ready. An existing release is never taken over.
func (c *Client) HelmInstall(ctx context.Context, r *HelmRelease) (*HelmReleaseStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := c.helmConfig(r.Namespace)
	if err != nil {
		return nil, err
	}
	if _, err := action.NewStatus(cfg).Run(r.Name); err == nil {
		return nil, fmt.Errorf("helm install %s: %w", r.Name, ErrReleaseExists)
	}
	ch, err := loadChart(r)
	if err != nil {
		return nil, err
	}
	in := action.NewInstall(cfg)
	in.ReleaseName = r.Name
	in.Namespace = r.Namespace
	in.CreateNamespace = r.CreateNamespace
	in.Version = r.Version
	in.Atomic = true
	in.Wait = true
	in.Timeout = helmTimeout(ctx)
	rel, err := in.RunWithContext(ctx, ch, map[string]any(r.Values))
	if err != nil {
		return nil, fmt.Errorf("helm install %s: %w", r.Name, err)
	}
	return releaseStatus(rel), nil
}

// HelmUpgrade upgrades an existing release with new chart version or values.
func (c *Client) HelmUpgrade(ctx context.Context, r *HelmRelease) (*HelmReleaseStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := c.helmConfig(r.Namespace)
	if err != nil {
		return nil, err
	}
	ch, err := loadChart(r)
	if err != nil {
		return nil, err
	}
	up := action.NewUpgrade(cfg)
	up.Namespace = r.Namespace
	up.Version = r.Version
	up.Atomic = true
	up.Wait = true
	up.Timeout = helmTimeout(ctx)
	up.ReuseValues = false
	rel, err := up.RunWithContext(ctx, r.Name, ch, map[string]any(r.Values))
	if err != nil {
		return nil, fmt.Errorf("helm upgrade %s: %w", r.Name, err)
	}
	return releaseStatus(rel), nil
}

// HelmUninstall removes a release. A release that does not exist is not an
// error. The Helm SDK offers no cancelable uninstall, so the wait is bounded
// by the deadline of ctx instead.
func (c *Client) HelmUninstall(ctx context.Context, namespace, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := c.helmConfig(namespace)
	if err != nil {
		return err
	}
	un := action.NewUninstall(cfg)
	un.Wait = true
	un.Timeout = helmTimeout(ctx)
	if _, err := un.Run(name); err != nil {
		if errors.Is(err, helmdriver.ErrReleaseNotFound) {
			return nil
		}
		return fmt.Errorf("helm uninstall %s: %w", name, err)
	}
	return nil
}

func releaseStatus(rel *release.Release) *HelmReleaseStatus {
	s := &HelmReleaseStatus{Name: rel.Name, Namespace: rel.Namespace, Revision: rel.Version}
	if rel.Info != nil {
		s.Status = rel.Info.Status.String()
	}
	if rel.Chart != nil && rel.Chart.Metadata != nil {
		s.ChartVersion = rel.Chart.Metadata.Version
		s.AppVersion = rel.Chart.Metadata.AppVersion
	}
	return s
}
