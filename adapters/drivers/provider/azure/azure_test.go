package azure

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice"
	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
)

func TestNewDriverSettings(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")
	t.Setenv("AZURE_LOCATION", "")
	t.Setenv("AZURE_AUTH_METHOD", "")

	if _, err := newDriver(map[string]string{}); err == nil || !strings.Contains(err.Error(), "subscriptionId") {
		t.Fatalf("expected missing settings error, got %v", err)
	}
	if _, err := newDriver(map[string]string{"subscriptionid": "sub", "location": "japaneast", "authmethod": "bogus"}); err == nil {
		t.Fatalf("expected unsupported auth method error")
	}
	if _, err := newDriver(map[string]string{"subscriptionid": "sub", "location": "japaneast", "authmethod": "client_secret"}); err == nil {
		t.Fatalf("expected client_secret to require credentials")
	}

	t.Setenv("AZURE_SUBSCRIPTION_ID", "env-sub")
	t.Setenv("AZURE_LOCATION", "westus2")
	d, err := newDriver(map[string]string{"location": "japaneast", "authmethod": "azure_cli"})
	if err != nil {
		t.Fatalf("newDriver: %v", err)
	}
	drv := d.(*driver)
	if drv.AzureSubscriptionId != "env-sub" || drv.AzureLocation != "japaneast" {
		t.Errorf("unexpected driver settings: %s %s", drv.AzureSubscriptionId, drv.AzureLocation)
	}
	if drv.ID() != Package {
		t.Errorf("ID() = %q", drv.ID())
	}
}

func TestResourceGroupNaming(t *testing.T) {
	urn := graph.NewURN("dev", "azure-go-aks", TypeResourceGroup, "azure-go-aks")
	name := resourceGroupName(&resourceGroupInputs{}, "azure-go-aks", urn)
	if !strings.HasPrefix(name, "azure-go-aks-") || len(name) != len("azure-go-aks-")+7 {
		t.Errorf("unexpected autoname %q", name)
	}
	if again := resourceGroupName(&resourceGroupInputs{}, "azure-go-aks", urn); again != name {
		t.Errorf("autoname not deterministic: %q != %q", again, name)
	}
	if got := resourceGroupName(&resourceGroupInputs{ResourceGroupName: "explicit"}, "azure-go-aks", urn); got != "explicit" {
		t.Errorf("explicit name ignored: %q", got)
	}

	p := resourceGroupParams(&resourceGroupInputs{Tags: map[string]string{"env": "dev"}}, "japaneast")
	if *p.Location != "japaneast" || *p.Tags["env"] != "dev" || *p.Tags["managed-by"] != "aksgraph" {
		t.Errorf("unexpected params: %+v", p)
	}
}

func testClusterInputs() graph.PropertyMap {
	return graph.PropertyMap{
		"resourceGroupName": "azure-go-aks-1234567",
		"resourceName":      "azure-aks",
		"agentPoolProfiles": []any{map[string]any{
			"count":        float64(3),
			"maxPods":      float64(110),
			"mode":         "System",
			"name":         "agentpool",
			"osDiskSizeGB": float64(30),
			"osType":       "Linux",
			"type":         "VirtualMachineScaleSets",
			"vmSize":       "Standard_DS2_v2",
		}},
		"dnsPrefix":         "azure-go-aks-1234567",
		"enableRBAC":        true,
		"kubernetesVersion": "1.26.0",
		"linuxProfile": map[string]any{
			"adminUsername": "testuser",
			"ssh": map[string]any{
				"publicKeys": []any{map[string]any{"keyData": graph.Secret{Element: "ssh-rsa AAAA"}}},
			},
		},
		"nodeResourceGroup": "MC_azure-go_azure-aks",
		"identity":          map[string]any{"type": "SystemAssigned"},
	}
}

func TestManagedClusterParams(t *testing.T) {
	var in managedClusterInputs
	if err := providerdrv.DecodeInputs(testClusterInputs(), &in); err != nil {
		t.Fatalf("DecodeInputs: %v", err)
	}
	if err := in.check(testClusterInputs()); err != nil {
		t.Fatalf("check: %v", err)
	}
	mc := managedClusterParams(&in, "japaneast")
	p := mc.Properties
	if *mc.Location != "japaneast" || *p.DNSPrefix != "azure-go-aks-1234567" || !*p.EnableRBAC {
		t.Errorf("unexpected cluster params")
	}
	if *p.KubernetesVersion != "1.26.0" || *p.NodeResourceGroup != "MC_azure-go_azure-aks" {
		t.Errorf("unexpected version or node resource group")
	}
	if len(p.AgentPoolProfiles) != 1 {
		t.Fatalf("expected one agent pool")
	}
	ap := p.AgentPoolProfiles[0]
	if *ap.Count != 3 || *ap.MaxPods != 110 || *ap.OSDiskSizeGB != 30 || *ap.VMSize != "Standard_DS2_v2" {
		t.Errorf("unexpected agent pool sizing")
	}
	if *ap.Mode != armcontainerservice.AgentPoolModeSystem || *ap.OSType != armcontainerservice.OSTypeLinux ||
		*ap.Type != armcontainerservice.AgentPoolTypeVirtualMachineScaleSets {
		t.Errorf("unexpected agent pool enums")
	}
	if *p.LinuxProfile.AdminUsername != "testuser" || *p.LinuxProfile.SSH.PublicKeys[0].KeyData != "ssh-rsa AAAA" {
		t.Errorf("unexpected linux profile")
	}
	if *mc.Identity.Type != armcontainerservice.ResourceIdentityTypeSystemAssigned {
		t.Errorf("unexpected identity")
	}
}

func TestManagedClusterCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(graph.PropertyMap)
		ok     bool
	}{
		{name: "valid", mutate: func(graph.PropertyMap) {}, ok: true},
		{name: "no pools", mutate: func(m graph.PropertyMap) { m["agentPoolProfiles"] = []any{} }},
		{name: "unknown pools", mutate: func(m graph.PropertyMap) { m["agentPoolProfiles"] = graph.Computed{} }, ok: true},
		{name: "zero count", mutate: func(m graph.PropertyMap) {
			m["agentPoolProfiles"].([]any)[0].(map[string]any)["count"] = float64(0)
		}},
		{name: "bad name", mutate: func(m graph.PropertyMap) { m["resourceName"] = "-bad" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testClusterInputs()
			tt.mutate(m)
			var in managedClusterInputs
			if err := providerdrv.DecodeInputs(m, &in); err != nil {
				t.Fatalf("DecodeInputs: %v", err)
			}
			err := in.check(m)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestManagedClusterDiff(t *testing.T) {
	d := &driver{}
	olds := testClusterInputs()

	news := testClusterInputs()
	news["agentPoolProfiles"].([]any)[0].(map[string]any)["count"] = float64(5)
	res, err := d.Diff(testContext(t), TypeManagedCluster, olds, news)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !res.HasChanges() || res.RequiresReplace() {
		t.Errorf("pool resize should update in place: %+v", res)
	}

	news = testClusterInputs()
	news["nodeResourceGroup"] = "MC_azure-go_other"
	res, _ = d.Diff(testContext(t), TypeManagedCluster, olds, news)
	if !res.RequiresReplace() {
		t.Errorf("node resource group change should replace: %+v", res)
	}

	if _, err := d.Diff(testContext(t), "azure-native:foo:Bar", olds, news); !errors.Is(err, providerdrv.ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestCredentialsOutputs(t *testing.T) {
	raw := []byte("apiVersion: v1\nkind: Config\n")
	out := credentialsOutputs(armcontainerservice.CredentialResults{
		Kubeconfigs: []*armcontainerservice.CredentialResult{{Name: to.Ptr("clusterUser"), Value: raw}},
	})
	list := out["kubeconfigs"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected one kubeconfig")
	}
	kc := list[0].(map[string]any)
	if kc["name"] != "clusterUser" || kc["value"] != base64.StdEncoding.EncodeToString(raw) {
		t.Errorf("unexpected kubeconfig entry: %v", kc)
	}
}
