package kube

import (
	"errors"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestNamespaceLifecycle(t *testing.T) {
	ctx := testContext(t)
	c := &Client{Clientset: fake.NewSimpleClientset()}

	ns, err := c.CreateNamespace(ctx, NamespaceMeta{Name: "ingress-nginx", Labels: map[string]string{"a": "1"}})
	if err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}
	if ns.Name != "ingress-nginx" || ns.Labels["a"] != "1" {
		t.Errorf("unexpected namespace: %+v", ns.ObjectMeta)
	}

	if _, err := c.CreateNamespace(ctx, NamespaceMeta{Name: "ingress-nginx"}); !errors.Is(err, ErrNamespaceExists) {
		t.Fatalf("expected ErrNamespaceExists, got %v", err)
	}

	ns, err = c.UpdateNamespace(ctx, NamespaceMeta{Name: "ingress-nginx", Labels: map[string]string{"a": "2"}})
	if err != nil {
		t.Fatalf("UpdateNamespace: %v", err)
	}
	if ns.Labels["a"] != "2" {
		t.Errorf("labels not updated: %v", ns.Labels)
	}

	if err := c.DeleteNamespace(ctx, "ingress-nginx"); err != nil {
		t.Fatalf("DeleteNamespace: %v", err)
	}
	if _, err := c.Clientset.CoreV1().Namespaces().Get(ctx, "ingress-nginx", metav1.GetOptions{}); err == nil {
		t.Errorf("namespace still present after delete")
	}
	if err := c.DeleteNamespace(ctx, "ingress-nginx"); err != nil {
		t.Errorf("deleting a missing namespace should succeed: %v", err)
	}
}

func TestNamespaceRequiresClient(t *testing.T) {
	var c *Client
	if _, err := c.CreateNamespace(testContext(t), NamespaceMeta{Name: "x"}); err == nil {
		t.Errorf("expected error for nil client")
	}
	c = &Client{Clientset: fake.NewSimpleClientset()}
	if _, err := c.CreateNamespace(testContext(t), NamespaceMeta{}); err == nil {
		t.Errorf("expected error for empty name")
	}
}

func TestHelmRequiresKubeconfig(t *testing.T) {
	c := &Client{Clientset: fake.NewSimpleClientset()}
	if err := c.HelmUninstall(testContext(t), "ns", "nginx"); err == nil {
		t.Errorf("expected error without kubeconfig")
	}
}
