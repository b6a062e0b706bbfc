package kube

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// ErrNamespaceExists is returned by CreateNamespace when the namespace is
// already present; namespaces are never adopted.
var ErrNamespaceExists = errors.New("namespace already exists")

// NamespaceDeleteTimeout bounds how long DeleteNamespace waits for finalizers.
var NamespaceDeleteTimeout = 5 * time.Minute

// namespacePollInterval is the polling period while waiting for deletion.
var namespacePollInterval = 2 * time.Second

// NamespaceMeta is the mutable metadata of a namespace.
type NamespaceMeta struct {
	Name        string
	Labels      map[string]string
	Annotations map[string]string
}

// CreateNamespace creates a namespace and fails when it already exists.
func (c *Client) CreateNamespace(ctx context.Context, meta NamespaceMeta) (*corev1.Namespace, error) {
	if c == nil || c.Clientset == nil {
		return nil, fmt.Errorf("kube client is not initialized")
	}
	if meta.Name == "" {
		return nil, fmt.Errorf("namespace name is empty")
	}

	ns, err := c.Clientset.CoreV1().Namespaces().Create(ctx, &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:        meta.Name,
			Labels:      meta.Labels,
			Annotations: meta.Annotations,
		},
	}, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil, fmt.Errorf("create namespace %s: %w", meta.Name, ErrNamespaceExists)
		}
		return nil, fmt.Errorf("create namespace %s: %w", meta.Name, err)
	}
	return ns, nil
}

// UpdateNamespace replaces the labels and annotations of an existing namespace.
func (c *Client) UpdateNamespace(ctx context.Context, meta NamespaceMeta) (*corev1.Namespace, error) {
	if c == nil || c.Clientset == nil {
		return nil, fmt.Errorf("kube client is not initialized")
	}
	ns, err := c.Clientset.CoreV1().Namespaces().Get(ctx, meta.Name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get namespace %s: %w", meta.Name, err)
	}
	ns.Labels = meta.Labels
	ns.Annotations = meta.Annotations
	ns, err = c.Clientset.CoreV1().Namespaces().Update(ctx, ns, metav1.UpdateOptions{})
	if err != nil {
		return nil, fmt.Errorf("update namespace %s: %w", meta.Name, err)
	}
	return ns, nil
}

// DeleteNamespace deletes a namespace and waits until it is gone, so that a
// namespace of the same name can be created right after. A namespace that
// does not exist is not an error.
func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	if c == nil || c.Clientset == nil {
		return fmt.Errorf("kube client is not initialized")
	}
	if name == "" {
		return fmt.Errorf("namespace name is empty")
	}

	err := c.Clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}

	err = wait.PollUntilContextTimeout(ctx, namespacePollInterval, NamespaceDeleteTimeout, true, func(ctx context.Context) (bool, error) {
		_, err := c.Clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		// transient errors keep polling
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("wait for namespace %s deletion: %w", name, err)
	}
	return nil
}
