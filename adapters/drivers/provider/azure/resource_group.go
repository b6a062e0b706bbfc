package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/naming"
)

var resourceGroupReplaceKeys = []string{"resourceGroupName", "location"}

type resourceGroupInputs struct {
	ResourceGroupName string            `json:"resourceGroupName"`
	Location          string            `json:"location"`
	Tags              map[string]string `json:"tags"`
}

func (in *resourceGroupInputs) check() error {
	if in.ResourceGroupName == "" {
		return nil
	}
	return naming.ValidateResourceGroupName(in.ResourceGroupName)
}

// resourceGroupName returns the explicit name or an autoname derived from
// the logical name and the URN.
func resourceGroupName(in *resourceGroupInputs, logical string, urn graph.URN) string {
	if in.ResourceGroupName != "" {
		return in.ResourceGroupName
	}
	return naming.Autoname(logical, string(urn), naming.ResourceGroupMaxLength)
}

func resourceGroupParams(in *resourceGroupInputs, location string) armresources.ResourceGroup {
	tags := map[string]*string{"managed-by": to.Ptr("aksgraph")}
	for k, v := range in.Tags {
		tags[k] = to.Ptr(v)
	}
	return armresources.ResourceGroup{
		Location: to.Ptr(location),
		Tags:     tags,
	}
}

func resourceGroupOutputs(rg armresources.ResourceGroup, name string) graph.PropertyMap {
	return graph.PropertyMap{
		"name":     name,
		"location": deref(rg.Location),
		"id":       deref(rg.ID),
	}
}

func (d *driver) resourceGroupsClient() (*armresources.ResourceGroupsClient, error) {
	c, err := armresources.NewResourceGroupsClient(d.AzureSubscriptionId, d.TokenCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group client: %w", err)
	}
	return c, nil
}

func (d *driver) resourceGroupCreate(ctx context.Context, req *providerdrv.CreateRequest) (*providerdrv.CreateResponse, error) {
	var in resourceGroupInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	name := resourceGroupName(&in, req.Name, req.URN)
	outputs, err := d.resourceGroupApply(ctx, name, &in)
	if err != nil {
		return nil, err
	}
	return &providerdrv.CreateResponse{ID: outputs["id"].(string), Outputs: outputs}, nil
}

func (d *driver) resourceGroupUpdate(ctx context.Context, req *providerdrv.UpdateRequest) (graph.PropertyMap, error) {
	var in resourceGroupInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	name, _ := req.OldOutputs["name"].(string)
	if name == "" {
		name = resourceGroupName(&in, req.Name, req.URN)
	}
	return d.resourceGroupApply(ctx, name, &in)
}

func (d *driver) resourceGroupApply(ctx context.Context, name string, in *resourceGroupInputs) (graph.PropertyMap, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	client, err := d.resourceGroupsClient()
	if err != nil {
		return nil, err
	}
	res, err := client.CreateOrUpdate(ctx, name, resourceGroupParams(in, d.locationOr(in.Location)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group %s: %w", name, err)
	}
	return resourceGroupOutputs(res.ResourceGroup, name), nil
}

func (d *driver) resourceGroupDelete(ctx context.Context, req *providerdrv.DeleteRequest) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	name, _ := req.Outputs["name"].(string)
	if name == "" {
		return fmt.Errorf("resource group %s has no recorded name", req.URN)
	}
	client, err := d.resourceGroupsClient()
	if err != nil {
		return err
	}
	poller, err := client.BeginDelete(ctx, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to start resource group deletion %s: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete resource group %s: %w", name, err)
	}
	return nil
}
