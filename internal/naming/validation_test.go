package naming

import (
	"strings"
	"testing"
)

func TestValidateNames(t *testing.T) {
	cases := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{name: "namespace valid", fn: ValidateNamespaceName, value: "ingress-nginx"},
		{name: "namespace uppercase", fn: ValidateNamespaceName, value: "Ingress", wantErr: true},
		{name: "namespace too long", fn: ValidateNamespaceName, value: strings.Repeat("a", 64), wantErr: true},
		{name: "release valid", fn: ValidateReleaseName, value: "nginx-1a2b3c4"},
		{name: "release too long", fn: ValidateReleaseName, value: strings.Repeat("a", ReleaseMaxLength+1), wantErr: true},
		{name: "rg valid", fn: ValidateResourceGroupName, value: "azure-go-aks_1(a)"},
		{name: "rg trailing period", fn: ValidateResourceGroupName, value: "rg.", wantErr: true},
		{name: "rg empty", fn: ValidateResourceGroupName, value: "", wantErr: true},
		{name: "rg bad char", fn: ValidateResourceGroupName, value: "rg/1", wantErr: true},
		{name: "cluster valid", fn: ValidateClusterName, value: "azure-aks"},
		{name: "cluster single char", fn: ValidateClusterName, value: "a"},
		{name: "cluster ends with hyphen", fn: ValidateClusterName, value: "aks-", wantErr: true},
		{name: "cluster too long", fn: ValidateClusterName, value: strings.Repeat("a", ClusterMaxLength+1), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn(tc.value)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
