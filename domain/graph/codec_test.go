package graph

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// reverseCrypter is a reversible stand-in for age in unit tests.
type reverseCrypter struct{}

func (reverseCrypter) Encrypt(p []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(p), nil
}

func (reverseCrypter) Decrypt(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func TestEncodeDecodeSecrets(t *testing.T) {
	in := PropertyMap{
		"name":       "ingress-nginx",
		"kubeconfig": Secret{Element: "apiVersion: v1"},
		"nested":     map[string]any{"list": []any{Secret{Element: float64(1)}}},
	}
	enc, err := EncodeSecrets(in, reverseCrypter{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data, _ := json.Marshal(enc)
	if strings.Contains(string(data), "apiVersion") {
		t.Fatalf("plaintext persisted: %s", data)
	}
	out, err := DecodeSecrets(enc, reverseCrypter{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, ok := out["kubeconfig"].(Secret)
	if !ok || s.Element != "apiVersion: v1" {
		t.Fatalf("secret not restored: %#v", out["kubeconfig"])
	}
	if !out.ContainsSecrets() || out["name"] != "ingress-nginx" {
		t.Fatalf("unexpected decode: %v", out)
	}
}

func TestEncodeSecretsRequiresCrypter(t *testing.T) {
	_, err := EncodeSecrets(PropertyMap{"k": Secret{Element: "v"}}, nil)
	if !errors.Is(err, ErrNoCrypter) {
		t.Fatalf("expected ErrNoCrypter, got %v", err)
	}
	if _, err := EncodeSecrets(PropertyMap{"k": Computed{}}, nil); err == nil {
		t.Fatalf("unknown values must not be persisted")
	}
}

func TestNormalizeAndPath(t *testing.T) {
	type meta struct {
		Name string `json:"name"`
	}
	v, err := Normalize(map[string]any{"metadata": meta{Name: "ns"}, "count": 3})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	m := PropertyMap(v.(map[string]any))
	if m["count"] != float64(3) {
		t.Fatalf("numbers must normalize to float64, got %T", m["count"])
	}
	got, secret, ok := m.Path("metadata.name")
	if !ok || secret || got != "ns" {
		t.Fatalf("path lookup failed: %v %v %v", got, secret, ok)
	}
	if _, _, ok := m.Path("metadata.uid"); ok {
		t.Fatalf("missing path must report !ok")
	}
}
