package azure

import (
	"strings"

	azuredrv "github.com/kompox/aksgraph/adapters/drivers/provider/azure"
	"github.com/kompox/aksgraph/domain/graph"
)

// AgentPoolProfileArgs describe a node pool. Count, VMSize, OSDiskSizeGB and
// OSType are required.
type AgentPoolProfileArgs struct {
	Name         string
	Count        int
	MaxPods      int
	Mode         string
	NodeLabels   map[string]string
	OSDiskSizeGB int
	OSType       string
	Type         string
	VMSize       string
}

// LinuxProfileArgs configure node administrator access.
type LinuxProfileArgs struct {
	AdminUsername string
	SSHPublicKeys []graph.Output[string]
}

// ManagedClusterArgs are the inputs of a managed cluster.
type ManagedClusterArgs struct {
	ResourceGroupName graph.Output[string]
	// ResourceName is the cluster name; it defaults to an autoname.
	ResourceName      graph.Output[string]
	Location          graph.Output[string]
	AgentPoolProfiles []AgentPoolProfileArgs
	DNSPrefix         graph.Output[string]
	EnableRBAC        bool
	KubernetesVersion string
	LinuxProfile      *LinuxProfileArgs
	NodeResourceGroup graph.Output[string]
	IdentityType      string
	Tags              map[string]string
}

// ManagedCluster is a declared managed cluster.
type ManagedCluster struct {
	*graph.Resource
	Name              graph.Output[string]
	ResourceGroupName graph.Output[string]
	Fqdn              graph.Output[string]
	NodeResourceGroup graph.Output[string]
}

func (a *ManagedClusterArgs) validate() error {
	if a.ResourceGroupName.IsZero() {
		return invalid("resourceGroupName is required")
	}
	if len(a.AgentPoolProfiles) == 0 {
		return invalid("at least one agent pool profile is required")
	}
	for i, p := range a.AgentPoolProfiles {
		switch {
		case p.Count < 1:
			return invalid("agentPoolProfiles[%d]: count must be at least 1", i)
		case strings.TrimSpace(p.VMSize) == "":
			return invalid("agentPoolProfiles[%d]: vmSize is required", i)
		case p.OSDiskSizeGB <= 0:
			return invalid("agentPoolProfiles[%d]: osDiskSizeGB is required", i)
		case strings.TrimSpace(p.OSType) == "":
			return invalid("agentPoolProfiles[%d]: osType is required", i)
		}
	}
	if lp := a.LinuxProfile; lp != nil {
		if lp.AdminUsername == "" {
			return invalid("linuxProfile: adminUsername is required")
		}
		if len(lp.SSHPublicKeys) == 0 {
			return invalid("linuxProfile: at least one SSH public key is required")
		}
	}
	return nil
}

func (p AgentPoolProfileArgs) input() graph.Input {
	m := map[string]any{
		"name":         p.Name,
		"count":        p.Count,
		"osDiskSizeGB": p.OSDiskSizeGB,
		"osType":       p.OSType,
		"vmSize":       p.VMSize,
	}
	if p.MaxPods > 0 {
		m["maxPods"] = p.MaxPods
	}
	if p.Mode != "" {
		m["mode"] = p.Mode
	}
	if p.Type != "" {
		m["type"] = p.Type
	}
	if p.NodeLabels != nil {
		m["nodeLabels"] = p.NodeLabels
	}
	return graph.Val(m)
}

func (lp *LinuxProfileArgs) input() graph.Input {
	keys := make([]graph.Input, len(lp.SSHPublicKeys))
	for i, k := range lp.SSHPublicKeys {
		keys[i] = graph.Object(graph.Props{"keyData": k})
	}
	return graph.Object(graph.Props{
		"adminUsername": graph.Val(lp.AdminUsername),
		"ssh":           graph.Object(graph.Props{"publicKeys": graph.All(keys...)}),
	})
}

// NewManagedCluster declares a managed cluster. Node pool sizing is
// validated here; everything else is left to the cloud provider.
func NewManagedCluster(g *graph.Graph, name string, args *ManagedClusterArgs, opts ...graph.ResourceOption) (*ManagedCluster, error) {
	if args == nil {
		return nil, invalid("managed cluster %q: args are required", name)
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	pools := make([]graph.Input, len(args.AgentPoolProfiles))
	for i, p := range args.AgentPoolProfiles {
		pools[i] = p.input()
	}
	props := graph.Props{
		"agentPoolProfiles": graph.All(pools...),
		"enableRBAC":        graph.Val(args.EnableRBAC),
	}
	props.Set("resourceGroupName", args.ResourceGroupName)
	props.Set("resourceName", args.ResourceName)
	props.Set("location", args.Location)
	props.Set("dnsPrefix", args.DNSPrefix)
	props.Set("nodeResourceGroup", args.NodeResourceGroup)
	if args.KubernetesVersion != "" {
		props.Set("kubernetesVersion", graph.Val(args.KubernetesVersion))
	}
	if args.LinuxProfile != nil {
		props.Set("linuxProfile", args.LinuxProfile.input())
	}
	if args.IdentityType != "" {
		props.Set("identity", graph.Val(map[string]any{"type": args.IdentityType}))
	}
	if len(args.Tags) > 0 {
		props.Set("tags", graph.Val(args.Tags))
	}

	r, err := g.Register(azuredrv.TypeManagedCluster, name, props, opts...)
	if err != nil {
		return nil, err
	}
	return &ManagedCluster{
		Resource:          r,
		Name:              graph.OutputOf[string](r, "name"),
		ResourceGroupName: graph.OutputOf[string](r, "resourceGroupName"),
		Fqdn:              graph.OutputOf[string](r, "fqdn"),
		NodeResourceGroup: graph.OutputOf[string](r, "nodeResourceGroup"),
	}, nil
}
