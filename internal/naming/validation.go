package naming

import (
	"fmt"
	"regexp"
	"strings"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

const (
	// ResourceGroupMaxLength is the Azure limit for resource group names.
	ResourceGroupMaxLength = 90
	// ClusterMaxLength is the AKS limit for managed cluster names.
	ClusterMaxLength = 63
	// ReleaseMaxLength is the Helm limit for release names.
	ReleaseMaxLength = 53
)

var (
	resourceGroupRE = regexp.MustCompile(`^[-\w._()]+$`)
	clusterRE       = regexp.MustCompile(`^[a-zA-Z0-9]$|^[a-zA-Z0-9][-_a-zA-Z0-9]*[a-zA-Z0-9]$`)
)

func validateDNS1123Label(name string, maximum int, labelKind string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", labelKind)
	}
	if len(name) > maximum {
		return fmt.Errorf("%s name exceeds %d characters", labelKind, maximum)
	}
	if errs := utilvalidation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid %s name: %s", labelKind, strings.Join(errs, ", "))
	}
	return nil
}

// ValidateNamespaceName checks a Kubernetes namespace name.
func ValidateNamespaceName(name string) error {
	return validateDNS1123Label(name, utilvalidation.DNS1123LabelMaxLength, "namespace")
}

// ValidateReleaseName checks a Helm release name.
func ValidateReleaseName(name string) error {
	return validateDNS1123Label(name, ReleaseMaxLength, "release")
}

// ValidateResourceGroupName checks an Azure resource group name.
func ValidateResourceGroupName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("resource group name must not be empty")
	case len(name) > ResourceGroupMaxLength:
		return fmt.Errorf("resource group name exceeds %d characters", ResourceGroupMaxLength)
	case strings.HasSuffix(name, "."):
		return fmt.Errorf("resource group name must not end with a period")
	case !resourceGroupRE.MatchString(name):
		return fmt.Errorf("invalid resource group name: %q", name)
	}
	return nil
}

// ValidateClusterName checks an AKS managed cluster name.
func ValidateClusterName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("cluster name must not be empty")
	case len(name) > ClusterMaxLength:
		return fmt.Errorf("cluster name exceeds %d characters", ClusterMaxLength)
	case !clusterRE.MatchString(name):
		return fmt.Errorf("invalid cluster name: %q", name)
	}
	return nil
}
