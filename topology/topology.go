// Package topology declares the AKS cluster with its ingress controller.
package topology

import (
	"fmt"

	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/kubeconfig"
	"github.com/kompox/aksgraph/resources/azure"
	"github.com/kompox/aksgraph/resources/kubernetes"
	"github.com/kompox/aksgraph/resources/tls"
)

// Project is the project name used for URNs and config keys.
const Project = "aksgraph"

// DefaultManagedClusterName is used when managedClusterName is not configured.
const DefaultManagedClusterName = "azure-aks"

// Config keys read by Declare.
const (
	KeyManagedClusterName = "managedClusterName"
	KeyNamespaceName      = "namespaceName"
)

// ExportKubeconfig is the name of the exported kubeconfig.
const ExportKubeconfig = "kubeconfig"

// Config reads project configuration values.
type Config interface {
	Get(key string) (string, bool)
}

// Topology holds the declarations made by Declare.
type Topology struct {
	ResourceGroup      *azure.ResourceGroup
	SSHKey             *tls.PrivateKey
	Cluster            *azure.ManagedCluster
	ManagedClusterName string
	Credentials        *azure.ListManagedClusterUserCredentialsResult
	Kubeconfig         graph.Output[string]
	Provider           *kubernetes.Provider
	Namespace          *kubernetes.Namespace
	NamespaceName      string
	Release            *kubernetes.Release
}

func getOr(cfg Config, key, def string) string {
	if cfg == nil {
		return def
	}
	if v, ok := cfg.Get(key); ok && v != "" {
		return v
	}
	return def
}

// Declare registers the topology in g.
func Declare(g *graph.Graph, cfg Config) (*Topology, error) {
	t := &Topology{
		ManagedClusterName: getOr(cfg, KeyManagedClusterName, DefaultManagedClusterName),
		NamespaceName:      getOr(cfg, KeyNamespaceName, "ingress-nginx"),
	}
	var err error

	t.ResourceGroup, err = azure.NewResourceGroup(g, "azure-go-aks", nil)
	if err != nil {
		return nil, err
	}

	t.SSHKey, err = tls.NewPrivateKey(g, "ssh-key", &tls.PrivateKeyArgs{
		Algorithm: "RSA",
		RsaBits:   4096,
	})
	if err != nil {
		return nil, err
	}

	t.Cluster, err = azure.NewManagedCluster(g, t.ManagedClusterName, &azure.ManagedClusterArgs{
		ResourceGroupName: t.ResourceGroup.Name,
		AgentPoolProfiles: []azure.AgentPoolProfileArgs{{
			Count:        3,
			MaxPods:      110,
			Mode:         "System",
			Name:         "agentpool",
			NodeLabels:   map[string]string{},
			OSDiskSizeGB: 30,
			OSType:       "Linux",
			Type:         "VirtualMachineScaleSets",
			VMSize:       "Standard_DS2_v2",
		}},
		DNSPrefix:         t.ResourceGroup.Name,
		EnableRBAC:        true,
		KubernetesVersion: "1.26.0",
		LinuxProfile: &azure.LinuxProfileArgs{
			AdminUsername: "testuser",
			SSHPublicKeys: []graph.Output[string]{t.SSHKey.PublicKeyOpenssh},
		},
		NodeResourceGroup: graph.Val(NodeResourceGroup(t.ManagedClusterName)),
		IdentityType:      "SystemAssigned",
	})
	if err != nil {
		return nil, err
	}

	t.Credentials, err = azure.ListManagedClusterUserCredentials(g, &azure.ListManagedClusterUserCredentialsArgs{
		ResourceGroupName: t.ResourceGroup.Name,
		ResourceName:      t.Cluster.Name,
	})
	if err != nil {
		return nil, err
	}

	encoded := graph.ApplyErr(t.Credentials.Kubeconfigs, func(list []azure.CredentialResult) (string, error) {
		kc, err := kubeconfig.SelectSingle(list)
		if err != nil {
			return "", err
		}
		return kc.Value, nil
	})
	t.Kubeconfig = graph.ToSecret(graph.ApplyErr(encoded, kubeconfig.Decode))
	if err := g.Export(ExportKubeconfig, t.Kubeconfig); err != nil {
		return nil, err
	}

	t.Provider, err = kubernetes.NewProvider(g, "provider", &kubernetes.ProviderArgs{
		Kubeconfig: t.Kubeconfig,
	})
	if err != nil {
		return nil, err
	}

	// Renaming the namespace replaces it; the release is replaced along with it.
	t.Namespace, err = kubernetes.NewNamespace(g, "ns", &kubernetes.NamespaceArgs{
		Name: graph.Val(t.NamespaceName),
	}, t.Provider)
	if err != nil {
		return nil, err
	}

	t.Release, err = kubernetes.NewRelease(g, "nginx", &kubernetes.ReleaseArgs{
		Chart:           "ingress-nginx",
		Namespace:       t.Namespace.MetadataName,
		CreateNamespace: false,
		RepositoryURL:   "https://kubernetes.github.io/ingress-nginx",
		Version:         "4.7.1",
		Values:          releaseValues(),
	}, t.Provider)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NodeResourceGroup returns the node resource group name of a cluster.
func NodeResourceGroup(managedClusterName string) string {
	return fmt.Sprintf("MC_azure-go_%s", managedClusterName)
}

func releaseValues() map[string]any {
	linux := func() map[string]any {
		return map[string]any{"kubernetes.io/os": "linux"}
	}
	return map[string]any{
		"controller": map[string]any{
			"replicaCount": 1,
			"nodeSelector": linux(),
			"admissionWebhooks": map[string]any{
				"patch": map[string]any{
					"nodeSelector": linux(),
				},
			},
		},
		"defaultBackend": map[string]any{
			"nodeSelector": linux(),
		},
	}
}
