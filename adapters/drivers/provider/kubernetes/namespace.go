package kubernetes

import (
	"context"
	"fmt"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/adapters/kube"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/naming"
	corev1 "k8s.io/api/core/v1"
	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

var namespaceReplaceKeys = []string{"metadata.name"}

type objectMeta struct {
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

type namespaceInputs struct {
	Metadata objectMeta `json:"metadata"`
}

func checkNamespace(inputs graph.PropertyMap) error {
	var in namespaceInputs
	if err := providerdrv.DecodeInputs(inputs, &in); err != nil {
		return err
	}
	if in.Metadata.Name == "" {
		return nil
	}
	return naming.ValidateNamespaceName(in.Metadata.Name)
}

// namespaceName returns metadata.name or an autoname.
func namespaceName(in *namespaceInputs, logical string, urn graph.URN) string {
	if in.Metadata.Name != "" {
		return in.Metadata.Name
	}
	return naming.Autoname(logical, string(urn), utilvalidation.DNS1123LabelMaxLength)
}

func namespaceOutputs(ns *corev1.Namespace) graph.PropertyMap {
	meta := map[string]any{
		"name": ns.Name,
		"uid":  string(ns.UID),
	}
	if len(ns.Labels) > 0 {
		meta["labels"] = stringMap(ns.Labels)
	}
	if len(ns.Annotations) > 0 {
		meta["annotations"] = stringMap(ns.Annotations)
	}
	return graph.PropertyMap{
		"metadata": meta,
		"status":   map[string]any{"phase": string(ns.Status.Phase)},
	}
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func namespaceCreate(ctx context.Context, c *kube.Client, req *providerdrv.CreateRequest) (*providerdrv.CreateResponse, error) {
	var in namespaceInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	name := namespaceName(&in, req.Name, req.URN)
	ns, err := c.CreateNamespace(ctx, kube.NamespaceMeta{
		Name:        name,
		Labels:      in.Metadata.Labels,
		Annotations: in.Metadata.Annotations,
	})
	if err != nil {
		return nil, err
	}
	return &providerdrv.CreateResponse{ID: ns.Name, Outputs: namespaceOutputs(ns)}, nil
}

func namespaceUpdate(ctx context.Context, c *kube.Client, req *providerdrv.UpdateRequest) (graph.PropertyMap, error) {
	var in namespaceInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, fmt.Errorf("namespace %s has no recorded ID", req.URN)
	}
	ns, err := c.UpdateNamespace(ctx, kube.NamespaceMeta{
		Name:        req.ID,
		Labels:      in.Metadata.Labels,
		Annotations: in.Metadata.Annotations,
	})
	if err != nil {
		return nil, err
	}
	return namespaceOutputs(ns), nil
}
