package azure

import (
	azuredrv "github.com/kompox/aksgraph/adapters/drivers/provider/azure"
	"github.com/kompox/aksgraph/domain/graph"
)

// CredentialResult is one kubeconfig returned by the credential listing.
// Value is base64 encoded.
type CredentialResult struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListManagedClusterUserCredentialsArgs address the cluster.
type ListManagedClusterUserCredentialsArgs struct {
	ResourceGroupName graph.Output[string]
	ResourceName      graph.Output[string]
}

// ListManagedClusterUserCredentialsResult holds the lazily listed
// kubeconfigs. They are always sensitive.
type ListManagedClusterUserCredentialsResult struct {
	*graph.Resource
	Kubeconfigs graph.Output[[]CredentialResult]
}

// ListManagedClusterUserCredentials declares a credential listing. It runs
// on every update once the cluster exists; nothing is listed at declaration.
func ListManagedClusterUserCredentials(g *graph.Graph, args *ListManagedClusterUserCredentialsArgs, opts ...graph.ResourceOption) (*ListManagedClusterUserCredentialsResult, error) {
	if args == nil || args.ResourceGroupName.IsZero() || args.ResourceName.IsZero() {
		return nil, invalid("listManagedClusterUserCredentials requires resourceGroupName and resourceName")
	}
	opts = append(opts, graph.AdditionalSecretOutputs("kubeconfigs"))
	r, err := g.Invoke(azuredrv.InvokeListManagedClusterUserCredentials, graph.Props{
		"resourceGroupName": args.ResourceGroupName,
		"resourceName":      args.ResourceName,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &ListManagedClusterUserCredentialsResult{
		Resource:    r,
		Kubeconfigs: graph.OutputOf[[]CredentialResult](r, "kubeconfigs"),
	}, nil
}
