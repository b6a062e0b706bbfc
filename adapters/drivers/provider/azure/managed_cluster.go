package azure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice"
	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/naming"
)

var managedClusterReplaceKeys = []string{
	"resourceGroupName",
	"resourceName",
	"location",
	"dnsPrefix",
	"nodeResourceGroup",
	"linuxProfile.adminUsername",
}

type agentPoolProfile struct {
	Name         string            `json:"name"`
	Count        int32             `json:"count"`
	MaxPods      int32             `json:"maxPods"`
	Mode         string            `json:"mode"`
	NodeLabels   map[string]string `json:"nodeLabels"`
	OSDiskSizeGB int32             `json:"osDiskSizeGB"`
	OSType       string            `json:"osType"`
	Type         string            `json:"type"`
	VMSize       string            `json:"vmSize"`
}

type sshPublicKey struct {
	KeyData string `json:"keyData"`
}

type sshConfiguration struct {
	PublicKeys []sshPublicKey `json:"publicKeys"`
}

type linuxProfile struct {
	AdminUsername string           `json:"adminUsername"`
	SSH           sshConfiguration `json:"ssh"`
}

type clusterIdentity struct {
	Type string `json:"type"`
}

type managedClusterInputs struct {
	ResourceGroupName string             `json:"resourceGroupName"`
	ResourceName      string             `json:"resourceName"`
	Location          string             `json:"location"`
	AgentPoolProfiles []agentPoolProfile `json:"agentPoolProfiles"`
	DNSPrefix         string             `json:"dnsPrefix"`
	EnableRBAC        bool               `json:"enableRBAC"`
	KubernetesVersion string             `json:"kubernetesVersion"`
	LinuxProfile      *linuxProfile      `json:"linuxProfile"`
	NodeResourceGroup string             `json:"nodeResourceGroup"`
	Identity          clusterIdentity    `json:"identity"`
	Tags              map[string]string  `json:"tags"`
}

var errNoAgentPool = errors.New("managed cluster requires at least one agent pool profile")

// check validates the known parts of the inputs. raw carries the
// undecoded inputs so unknown values are not mistaken for missing ones.
func (in *managedClusterInputs) check(raw graph.PropertyMap) error {
	if in.ResourceName != "" {
		if err := naming.ValidateClusterName(in.ResourceName); err != nil {
			return err
		}
	}
	if v, ok := raw["agentPoolProfiles"]; ok && graph.IsComputed(v) {
		return nil
	}
	if len(in.AgentPoolProfiles) == 0 {
		return errNoAgentPool
	}
	for i, p := range in.AgentPoolProfiles {
		if p.Count < 1 {
			return fmt.Errorf("agentPoolProfiles[%d]: count must be at least 1", i)
		}
		if p.VMSize == "" {
			return fmt.Errorf("agentPoolProfiles[%d]: vmSize is required", i)
		}
	}
	return nil
}

// managedClusterName returns the explicit name or an autoname.
func managedClusterName(in *managedClusterInputs, logical string, urn graph.URN) string {
	if in.ResourceName != "" {
		return in.ResourceName
	}
	return naming.Autoname(logical, string(urn), naming.ClusterMaxLength)
}

func managedClusterParams(in *managedClusterInputs, location string) armcontainerservice.ManagedCluster {
	tags := map[string]*string{"managed-by": to.Ptr("aksgraph")}
	for k, v := range in.Tags {
		tags[k] = to.Ptr(v)
	}
	props := &armcontainerservice.ManagedClusterProperties{
		EnableRBAC: to.Ptr(in.EnableRBAC),
	}
	if in.DNSPrefix != "" {
		props.DNSPrefix = to.Ptr(in.DNSPrefix)
	}
	if in.KubernetesVersion != "" {
		props.KubernetesVersion = to.Ptr(in.KubernetesVersion)
	}
	if in.NodeResourceGroup != "" {
		props.NodeResourceGroup = to.Ptr(in.NodeResourceGroup)
	}
	for _, p := range in.AgentPoolProfiles {
		profile := &armcontainerservice.ManagedClusterAgentPoolProfile{
			Name:   to.Ptr(p.Name),
			Count:  to.Ptr(p.Count),
			VMSize: to.Ptr(p.VMSize),
		}
		if p.NodeLabels != nil {
			profile.NodeLabels = make(map[string]*string, len(p.NodeLabels))
			for k, v := range p.NodeLabels {
				profile.NodeLabels[k] = to.Ptr(v)
			}
		}
		if p.MaxPods > 0 {
			profile.MaxPods = to.Ptr(p.MaxPods)
		}
		if p.OSDiskSizeGB > 0 {
			profile.OSDiskSizeGB = to.Ptr(p.OSDiskSizeGB)
		}
		if p.Mode != "" {
			profile.Mode = to.Ptr(armcontainerservice.AgentPoolMode(p.Mode))
		}
		if p.OSType != "" {
			profile.OSType = to.Ptr(armcontainerservice.OSType(p.OSType))
		}
		if p.Type != "" {
			profile.Type = to.Ptr(armcontainerservice.AgentPoolType(p.Type))
		}
		props.AgentPoolProfiles = append(props.AgentPoolProfiles, profile)
	}
	if in.LinuxProfile != nil {
		lp := &armcontainerservice.LinuxProfile{
			AdminUsername: to.Ptr(in.LinuxProfile.AdminUsername),
			SSH:           &armcontainerservice.SSHConfiguration{},
		}
		for _, k := range in.LinuxProfile.SSH.PublicKeys {
			lp.SSH.PublicKeys = append(lp.SSH.PublicKeys, &armcontainerservice.SSHPublicKey{
				KeyData: to.Ptr(k.KeyData),
			})
		}
		props.LinuxProfile = lp
	}

	mc := armcontainerservice.ManagedCluster{
		Location:   to.Ptr(location),
		Tags:       tags,
		Properties: props,
	}
	if in.Identity.Type != "" {
		mc.Identity = &armcontainerservice.ManagedClusterIdentity{
			Type: to.Ptr(armcontainerservice.ResourceIdentityType(in.Identity.Type)),
		}
	}
	return mc
}

func managedClusterOutputs(mc armcontainerservice.ManagedCluster, rg, name string) graph.PropertyMap {
	out := graph.PropertyMap{
		"name":              name,
		"resourceGroupName": rg,
		"location":          deref(mc.Location),
		"id":                deref(mc.ID),
	}
	if p := mc.Properties; p != nil {
		out["fqdn"] = deref(p.Fqdn)
		out["kubernetesVersion"] = deref(p.KubernetesVersion)
		out["nodeResourceGroup"] = deref(p.NodeResourceGroup)
		out["provisioningState"] = deref(p.ProvisioningState)
	}
	return out
}

func (d *driver) managedClustersClient() (*armcontainerservice.ManagedClustersClient, error) {
	c, err := armcontainerservice.NewManagedClustersClient(d.AzureSubscriptionId, d.TokenCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create AKS client: %w", err)
	}
	return c, nil
}

func (d *driver) managedClusterCreate(ctx context.Context, req *providerdrv.CreateRequest) (*providerdrv.CreateResponse, error) {
	var in managedClusterInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	if err := in.check(req.Inputs); err != nil {
		return nil, err
	}
	name := managedClusterName(&in, req.Name, req.URN)

	client, err := d.managedClustersClient()
	if err != nil {
		return nil, err
	}
	if _, err := client.Get(ctx, in.ResourceGroupName, name, nil); err == nil {
		return nil, fmt.Errorf("AKS cluster %s already exists in resource group %s", name, in.ResourceGroupName)
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to get AKS cluster %s: %w", name, err)
	}

	outputs, err := d.managedClusterApply(ctx, client, name, &in)
	if err != nil {
		return nil, err
	}
	return &providerdrv.CreateResponse{ID: outputs["id"].(string), Outputs: outputs}, nil
}

func (d *driver) managedClusterUpdate(ctx context.Context, req *providerdrv.UpdateRequest) (graph.PropertyMap, error) {
	var in managedClusterInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	if err := in.check(req.Inputs); err != nil {
		return nil, err
	}
	name, _ := req.OldOutputs["name"].(string)
	if name == "" {
		name = managedClusterName(&in, req.Name, req.URN)
	}
	client, err := d.managedClustersClient()
	if err != nil {
		return nil, err
	}
	return d.managedClusterApply(ctx, client, name, &in)
}

func (d *driver) managedClusterApply(ctx context.Context, client *armcontainerservice.ManagedClustersClient, name string, in *managedClusterInputs) (graph.PropertyMap, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	poller, err := client.BeginCreateOrUpdate(ctx, in.ResourceGroupName, name, managedClusterParams(in, d.locationOr(in.Location)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start AKS cluster creation: %w", err)
	}
	res, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create AKS cluster %s: %w", name, err)
	}
	return managedClusterOutputs(res.ManagedCluster, in.ResourceGroupName, name), nil
}

func (d *driver) managedClusterDelete(ctx context.Context, req *providerdrv.DeleteRequest) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	name, _ := req.Outputs["name"].(string)
	rg, _ := req.Outputs["resourceGroupName"].(string)
	if name == "" || rg == "" {
		return fmt.Errorf("AKS cluster %s has no recorded name", req.URN)
	}
	client, err := d.managedClustersClient()
	if err != nil {
		return err
	}
	poller, err := client.BeginDelete(ctx, rg, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to start AKS cluster deletion: %w", err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete AKS cluster %s: %w", name, err)
	}
	return nil
}
