package kubeconfig

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

const sample = `apiVersion: v1
kind: Config
clusters:
- name: azure-aks
  cluster:
    server: https://azure-aks-dns.hcp.westus2.azmk8s.io:443
contexts:
- name: azure-aks
  context:
    cluster: azure-aks
    user: clusterUser_rg_azure-aks
current-context: azure-aks
users:
- name: clusterUser_rg_azure-aks
  user:
    token: abc
`

func TestDecodeIdempotent(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte(sample))
	a, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a != b || a != sample {
		t.Fatalf("decode must be deterministic and exact")
	}
	if _, err := Decode("%%%"); err == nil {
		t.Fatalf("expected error for malformed base64")
	}
}

func TestSelectSingle(t *testing.T) {
	if _, err := SelectSingle([]string{}); !errors.Is(err, ErrNoKubeconfig) {
		t.Fatalf("expected ErrNoKubeconfig, got %v", err)
	}
	if _, err := SelectSingle([]string{"a", "b"}); !errors.Is(err, ErrMultipleKubeconfigs) {
		t.Fatalf("expected ErrMultipleKubeconfigs, got %v", err)
	}
	v, err := SelectSingle([]string{"a"})
	if err != nil || v != "a" {
		t.Fatalf("unexpected %q %v", v, err)
	}
}

func TestLoadAndNormalizeAndPrint(t *testing.T) {
	cfg, err := LoadAndNormalize([]byte(sample), "ingress-nginx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := Server(cfg); got != "https://azure-aks-dns.hcp.westus2.azmk8s.io:443" {
		t.Fatalf("unexpected server %q", got)
	}
	if ns := cfg.Contexts[cfg.CurrentContext].Namespace; ns != "ingress-nginx" {
		t.Fatalf("namespace not set: %q", ns)
	}
	var buf bytes.Buffer
	if err := Print(&buf, cfg, "json"); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected json output: %s", buf.String())
	}
	if _, err := LoadAndNormalize([]byte("not: [valid"), ""); err == nil {
		t.Fatalf("expected parse error")
	}
}
