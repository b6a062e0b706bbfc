package azure

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice"
	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
)

type credentialsArgs struct {
	ResourceGroupName string `json:"resourceGroupName"`
	ResourceName      string `json:"resourceName"`
}

// listManagedClusterUserCredentials returns {"kubeconfigs": [{"name", "value"}]}
// with every value base64 encoded, the way ARM serializes it on the wire.
func (d *driver) listManagedClusterUserCredentials(ctx context.Context, args graph.PropertyMap) (graph.PropertyMap, error) {
	var in credentialsArgs
	if err := providerdrv.DecodeInputs(args, &in); err != nil {
		return nil, err
	}
	if in.ResourceGroupName == "" || in.ResourceName == "" {
		return nil, fmt.Errorf("listManagedClusterUserCredentials requires resourceGroupName and resourceName")
	}
	client, err := d.managedClustersClient()
	if err != nil {
		return nil, err
	}
	res, err := client.ListClusterUserCredentials(ctx, in.ResourceGroupName, in.ResourceName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster user credentials: %w", err)
	}
	return credentialsOutputs(res.CredentialResults), nil
}

func credentialsOutputs(res armcontainerservice.CredentialResults) graph.PropertyMap {
	kubeconfigs := make([]any, 0, len(res.Kubeconfigs))
	for _, kc := range res.Kubeconfigs {
		if kc == nil {
			continue
		}
		kubeconfigs = append(kubeconfigs, map[string]any{
			"name":  deref(kc.Name),
			"value": base64.StdEncoding.EncodeToString(kc.Value),
		})
	}
	return graph.PropertyMap{"kubeconfigs": kubeconfigs}
}
