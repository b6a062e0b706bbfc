package kube

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHelmTimeout(t *testing.T) {
	if got := helmTimeout(context.Background()); got != HelmTimeout {
		t.Errorf("no deadline: got %v, want %v", got, HelmTimeout)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if got := helmTimeout(ctx); got <= 0 || got > time.Minute {
		t.Errorf("deadline in a minute: got %v", got)
	}
	ctx, cancel = context.WithTimeout(context.Background(), 2*HelmTimeout)
	defer cancel()
	if got := helmTimeout(ctx); got != HelmTimeout {
		t.Errorf("distant deadline: got %v, want %v", got, HelmTimeout)
	}
}

func TestHelmCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{Kubeconfig: []byte("apiVersion: v1")}
	if err := c.HelmUninstall(ctx, "ingress-nginx", "nginx"); !errors.Is(err, context.Canceled) {
		t.Errorf("HelmUninstall: expected context.Canceled, got %v", err)
	}
	if _, err := c.HelmInstall(ctx, &HelmRelease{Name: "nginx", Namespace: "ingress-nginx", Chart: "ingress-nginx"}); !errors.Is(err, context.Canceled) {
		t.Errorf("HelmInstall: expected context.Canceled, got %v", err)
	}
	if _, err := c.HelmUpgrade(ctx, &HelmRelease{Name: "nginx", Namespace: "ingress-nginx", Chart: "ingress-nginx"}); !errors.Is(err, context.Canceled) {
		t.Errorf("HelmUpgrade: expected context.Canceled, got %v", err)
	}
}
