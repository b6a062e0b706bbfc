// Package azure implements the azure-native provider driver on top of the
// Azure Resource Manager SDK.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/internal/logging"
)

// Package is the provider package name of this driver.
const Package = "azure-native"

// Type tokens handled by the driver.
const (
	TypeResourceGroup  = "azure-native:resources:ResourceGroup"
	TypeManagedCluster = "azure-native:containerservice:ManagedCluster"
)

// InvokeListManagedClusterUserCredentials lists the user kubeconfigs of a
// managed cluster.
const InvokeListManagedClusterUserCredentials = "azure-native:containerservice:listManagedClusterUserCredentials"

// operationTimeout bounds a single long running ARM operation.
const operationTimeout = 30 * time.Minute

// driver implements the azure-native provider driver.
type driver struct {
	TokenCredential     azcore.TokenCredential
	AzureSubscriptionId string
	AzureLocation       string
}

// ID returns the provider identifier.
func (d *driver) ID() string { return Package }

// init registers the azure-native driver.
func init() {
	providerdrv.Register(Package, newDriver)
}

// newDriver builds a driver from lower case settings. Settings not given fall
// back to the AZURE_* environment variables.
func newDriver(settings map[string]string) (providerdrv.Driver, error) {
	get := func(k, env string) string {
		if v := strings.TrimSpace(settings[k]); v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(env))
	}

	subscriptionID := get("subscriptionid", "AZURE_SUBSCRIPTION_ID")
	location := get("location", "AZURE_LOCATION")
	missing := make([]string, 0, 2)
	if subscriptionID == "" {
		missing = append(missing, "subscriptionId (AZURE_SUBSCRIPTION_ID)")
	}
	if location == "" {
		missing = append(missing, "location (AZURE_LOCATION)")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required azure-native settings: %s", strings.Join(missing, ", "))
	}

	authMethod := get("authmethod", "AZURE_AUTH_METHOD")
	if authMethod == "" {
		authMethod = "default"
	}

	var cred azcore.TokenCredential
	var err error
	switch authMethod {
	case "client_secret":
		tenantID := get("tenantid", "AZURE_TENANT_ID")
		clientID := get("clientid", "AZURE_CLIENT_ID")
		clientSecret := get("clientsecret", "AZURE_CLIENT_SECRET")
		if tenantID == "" || clientID == "" || clientSecret == "" {
			return nil, fmt.Errorf("client_secret auth requires AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET")
		}
		cred, err = azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	case "managed_identity":
		clientID := get("clientid", "AZURE_CLIENT_ID")
		opts := &azidentity.ManagedIdentityCredentialOptions{}
		if clientID != "" {
			opts.ID = azidentity.ClientID(clientID)
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case "workload_identity":
		tenantID := get("tenantid", "AZURE_TENANT_ID")
		clientID := get("clientid", "AZURE_CLIENT_ID")
		tokenFile := get("federatedtokenfile", "AZURE_FEDERATED_TOKEN_FILE")
		if tenantID == "" || clientID == "" || tokenFile == "" {
			return nil, fmt.Errorf("workload_identity auth requires AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_FEDERATED_TOKEN_FILE")
		}
		cred, err = azidentity.NewWorkloadIdentityCredential(&azidentity.WorkloadIdentityCredentialOptions{
			TenantID:      tenantID,
			ClientID:      clientID,
			TokenFilePath: tokenFile,
		})
	case "azure_cli":
		cred, err = azidentity.NewAzureCLICredential(nil)
	case "azure_developer_cli":
		cred, err = azidentity.NewAzureDeveloperCLICredential(nil)
	case "default":
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	default:
		return nil, fmt.Errorf("unsupported AZURE_AUTH_METHOD: %s", authMethod)
	}
	if err != nil {
		return nil, fmt.Errorf("create Azure credential: %w", err)
	}

	return &driver{
		TokenCredential:     cred,
		AzureSubscriptionId: subscriptionID,
		AzureLocation:       location,
	}, nil
}

// Check validates inputs of typ.
func (d *driver) Check(_ context.Context, typ string, inputs graph.PropertyMap) error {
	switch typ {
	case TypeResourceGroup:
		var in resourceGroupInputs
		if err := providerdrv.DecodeInputs(inputs, &in); err != nil {
			return err
		}
		return in.check()
	case TypeManagedCluster:
		var in managedClusterInputs
		if err := providerdrv.DecodeInputs(inputs, &in); err != nil {
			return err
		}
		return in.check(inputs)
	default:
		return fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, typ)
	}
}

// Diff compares recorded and desired inputs of typ.
func (d *driver) Diff(_ context.Context, typ string, olds, news graph.PropertyMap) (*providerdrv.DiffResult, error) {
	switch typ {
	case TypeResourceGroup:
		return providerdrv.DiffProperties(olds, news, resourceGroupReplaceKeys...), nil
	case TypeManagedCluster:
		return providerdrv.DiffProperties(olds, news, managedClusterReplaceKeys...), nil
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, typ)
	}
}

// Create creates a resource of req.Type.
func (d *driver) Create(ctx context.Context, req *providerdrv.CreateRequest) (resp *providerdrv.CreateResponse, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "Create", req.URN)
	defer func() { cleanup(err) }()

	switch req.Type {
	case TypeResourceGroup:
		return d.resourceGroupCreate(ctx, req)
	case TypeManagedCluster:
		return d.managedClusterCreate(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
}

// Update updates a resource of req.Type in place.
func (d *driver) Update(ctx context.Context, req *providerdrv.UpdateRequest) (outputs graph.PropertyMap, err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "Update", req.URN)
	defer func() { cleanup(err) }()

	switch req.Type {
	case TypeResourceGroup:
		return d.resourceGroupUpdate(ctx, req)
	case TypeManagedCluster:
		return d.managedClusterUpdate(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
}

// Delete deletes a resource of req.Type. Resources already gone are not an
// error.
func (d *driver) Delete(ctx context.Context, req *providerdrv.DeleteRequest) (err error) {
	ctx, cleanup := d.withMethodLogger(ctx, "Delete", req.URN)
	defer func() { cleanup(err) }()

	switch req.Type {
	case TypeResourceGroup:
		return d.resourceGroupDelete(ctx, req)
	case TypeManagedCluster:
		return d.managedClusterDelete(ctx, req)
	default:
		return fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
}

// Invoke runs a read-only function.
func (d *driver) Invoke(ctx context.Context, token string, args graph.PropertyMap) (graph.PropertyMap, error) {
	switch token {
	case InvokeListManagedClusterUserCredentials:
		return d.listManagedClusterUserCredentials(ctx, args)
	default:
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, token)
	}
}

// withMethodLogger emits AZURE:<method>:START and returns a cleanup emitting
// AZURE:<method>:END:OK or AZURE:<method>:END:FAILED.
func (d *driver) withMethodLogger(ctx context.Context, method string, urn graph.URN) (context.Context, func(err error)) {
	startAt := time.Now()
	logger := logging.FromContext(ctx).With("driver", "AZURE."+method, "urn", string(urn))
	ctx = logging.WithLogger(ctx, logger)
	logger.Info(ctx, "AZURE:"+method+":START")

	return ctx, func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, "AZURE:"+method+":END:OK", "elapsed", elapsed)
			return
		}
		errStr := err.Error()
		if len(errStr) > 32 {
			errStr = errStr[:32] + "..."
		}
		logger.Warn(ctx, "AZURE:"+method+":END:FAILED", "err", errStr, "elapsed", elapsed)
	}
}

// isNotFound reports whether err is an ARM 404 response.
func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func (d *driver) locationOr(loc string) string {
	if loc != "" {
		return loc
	}
	return d.AzureLocation
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
