package tls

import (
	"errors"
	"testing"

	"github.com/kompox/aksgraph/domain/graph"
)

func TestNewPrivateKey(t *testing.T) {
	g := graph.New("p", "dev")
	if _, err := NewPrivateKey(g, "ssh-key", &PrivateKeyArgs{}); !errors.Is(err, ErrAlgorithmRequired) {
		t.Fatalf("expected ErrAlgorithmRequired, got %v", err)
	}

	// combinations are checked at reconciliation time
	key, err := NewPrivateKey(g, "ssh-key", &PrivateKeyArgs{Algorithm: "RSA", RsaBits: 3})
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	if key.PublicKeyOpenssh.IsSecret() {
		t.Errorf("public key must not be secret")
	}
	if !key.PrivateKeyPem.IsSecret() || !key.PrivateKeyOpenssh.IsSecret() {
		t.Errorf("private key outputs must be secret")
	}
	if deps := key.PublicKeyOpenssh.Dependencies(); len(deps) != 1 || deps[0] != key.URN() {
		t.Errorf("unexpected dependencies: %v", deps)
	}
}
