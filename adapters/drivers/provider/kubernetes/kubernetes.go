// Package kubernetes implements the kubernetes provider driver: namespaces
// through client-go and chart releases through the Helm SDK.
package kubernetes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/adapters/kube"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/kubeconfig"
	"github.com/kompox/aksgraph/internal/logging"
	"k8s.io/client-go/tools/clientcmd"
)

// Package is the provider package name of this driver.
const Package = "kubernetes"

// Type tokens handled by the driver.
const (
	TypeNamespace = "kubernetes:core/v1:Namespace"
	TypeRelease   = "kubernetes:helm.sh/v3:Release"
)

const userAgent = "aksgraph"

// driver implements the kubernetes provider driver. It connects lazily so an
// unconfigured driver can still check and diff inputs during previews.
type driver struct {
	kubeconfig []byte
	namespace  string

	mu     sync.Mutex
	client *kube.Client
}

func init() {
	providerdrv.Register(Package, newDriver)
}

// newDriver builds a driver from the "kubeconfig" and "namespace" settings.
// The kubeconfig must carry exactly one usable context.
func newDriver(settings map[string]string) (providerdrv.Driver, error) {
	d := &driver{namespace: strings.TrimSpace(settings["namespace"])}
	raw := strings.TrimSpace(settings["kubeconfig"])
	if raw == "" {
		return d, nil
	}
	cfg, err := kubeconfig.LoadAndNormalize([]byte(raw), d.namespace)
	if err != nil {
		return nil, fmt.Errorf("kubernetes provider: %w", err)
	}
	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return nil, fmt.Errorf("kubernetes provider: serialize kubeconfig: %w", err)
	}
	d.kubeconfig = data
	return d, nil
}

func (d *driver) ID() string { return Package }

// connect returns the cluster client, building it on first use.
func (d *driver) connect(ctx context.Context) (*kube.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}
	if len(d.kubeconfig) == 0 {
		return nil, fmt.Errorf("%w: kubernetes provider has no kubeconfig", providerdrv.ErrNotConfigured)
	}
	c, err := kube.NewClientFromKubeconfig(ctx, d.kubeconfig, &kube.Options{UserAgent: userAgent})
	if err != nil {
		return nil, err
	}
	d.client = c
	return c, nil
}

func (d *driver) Check(_ context.Context, typ string, inputs graph.PropertyMap) error {
	switch typ {
	case TypeNamespace:
		return checkNamespace(inputs)
	case TypeRelease:
		return checkRelease(inputs)
	default:
		return fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, typ)
	}
}

func (d *driver) Diff(_ context.Context, typ string, olds, news graph.PropertyMap) (*providerdrv.DiffResult, error) {
	switch typ {
	case TypeNamespace:
		return providerdrv.DiffProperties(olds, news, namespaceReplaceKeys...), nil
	case TypeRelease:
		return providerdrv.DiffProperties(olds, news, releaseReplaceKeys...), nil
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, typ)
	}
}

// DiffConfig compares two provider configurations. A kubeconfig pointing at
// another API server, or one not known yet, replaces the provider; rotated
// credentials for the same server update it in place.
func (d *driver) DiffConfig(_ context.Context, olds, news graph.PropertyMap) (*providerdrv.DiffResult, error) {
	diff := providerdrv.DiffProperties(olds, news, "namespace")
	for _, k := range diff.Changes {
		if k == "kubeconfig" && !sameServer(olds[k], news[k]) {
			diff.Replaces = append(diff.Replaces, k)
		}
	}
	return diff, nil
}

func sameServer(olds, news any) bool {
	if graph.IsComputed(graph.Plain(olds)) || graph.IsComputed(graph.Plain(news)) {
		return false
	}
	server := func(v any) string {
		raw, ok := graph.Plain(v).(string)
		if !ok || strings.TrimSpace(raw) == "" {
			return ""
		}
		cfg, err := kubeconfig.LoadAndNormalize([]byte(raw), "")
		if err != nil {
			return ""
		}
		return kubeconfig.Server(cfg)
	}
	o, n := server(olds), server(news)
	return o != "" && o == n
}

func (d *driver) Create(ctx context.Context, req *providerdrv.CreateRequest) (resp *providerdrv.CreateResponse, err error) {
	ctx, cleanup := withMethodLogger(ctx, "Create", req.URN)
	defer func() { cleanup(err) }()

	c, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	switch req.Type {
	case TypeNamespace:
		return namespaceCreate(ctx, c, req)
	case TypeRelease:
		return releaseCreate(ctx, c, req, d.namespace)
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
}

func (d *driver) Update(ctx context.Context, req *providerdrv.UpdateRequest) (outputs graph.PropertyMap, err error) {
	ctx, cleanup := withMethodLogger(ctx, "Update", req.URN)
	defer func() { cleanup(err) }()

	c, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	switch req.Type {
	case TypeNamespace:
		return namespaceUpdate(ctx, c, req)
	case TypeRelease:
		return releaseUpdate(ctx, c, req)
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
}

func (d *driver) Delete(ctx context.Context, req *providerdrv.DeleteRequest) (err error) {
	ctx, cleanup := withMethodLogger(ctx, "Delete", req.URN)
	defer func() { cleanup(err) }()

	c, err := d.connect(ctx)
	if err != nil {
		return err
	}
	switch req.Type {
	case TypeNamespace:
		return c.DeleteNamespace(ctx, req.ID)
	case TypeRelease:
		ns, name, ok := strings.Cut(req.ID, "/")
		if !ok {
			return fmt.Errorf("invalid release ID %q", req.ID)
		}
		return c.HelmUninstall(ctx, ns, name)
	default:
		return fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
}

func (d *driver) Invoke(_ context.Context, token string, _ graph.PropertyMap) (graph.PropertyMap, error) {
	return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, token)
}

// withMethodLogger emits K8S:<method>:START and a matching END line.
func withMethodLogger(ctx context.Context, method string, urn graph.URN) (context.Context, func(err error)) {
	startAt := time.Now()
	logger := logging.FromContext(ctx).With("driver", "K8S."+method, "urn", string(urn))
	ctx = logging.WithLogger(ctx, logger)
	logger.Info(ctx, "K8S:"+method+":START")

	return ctx, func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, "K8S:"+method+":END:OK", "elapsed", elapsed)
			return
		}
		errStr := err.Error()
		if len(errStr) > 32 {
			errStr = errStr[:32] + "..."
		}
		logger.Warn(ctx, "K8S:"+method+":END:FAILED", "err", errStr, "elapsed", elapsed)
	}
}
