// Package tls declares locally generated key material.
package tls

import (
	"errors"
	"strings"

	tlsdrv "github.com/kompox/aksgraph/adapters/drivers/provider/tls"
	"github.com/kompox/aksgraph/domain/graph"
)

// ErrAlgorithmRequired is returned when a key is declared without algorithm.
var ErrAlgorithmRequired = errors.New("private key algorithm is required")

// PrivateKeyArgs select the key algorithm. Whether the combination can be
// generated is checked when the key is reconciled.
type PrivateKeyArgs struct {
	Algorithm  string
	RsaBits    int
	EcdsaCurve string
}

// PrivateKey is a declared key pair.
type PrivateKey struct {
	*graph.Resource
	PublicKeyOpenssh  graph.Output[string]
	PublicKeyPem      graph.Output[string]
	PrivateKeyPem     graph.Output[string]
	PrivateKeyOpenssh graph.Output[string]
}

// NewPrivateKey declares a key pair.
func NewPrivateKey(g *graph.Graph, name string, args *PrivateKeyArgs, opts ...graph.ResourceOption) (*PrivateKey, error) {
	if args == nil || strings.TrimSpace(args.Algorithm) == "" {
		return nil, ErrAlgorithmRequired
	}
	props := graph.Props{"algorithm": graph.Val(args.Algorithm)}
	if args.RsaBits != 0 {
		props.Set("rsaBits", graph.Val(args.RsaBits))
	}
	if args.EcdsaCurve != "" {
		props.Set("ecdsaCurve", graph.Val(args.EcdsaCurve))
	}
	opts = append(opts, graph.AdditionalSecretOutputs("privateKeyPem", "privateKeyOpenssh"))
	r, err := g.Register(tlsdrv.TypePrivateKey, name, props, opts...)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{
		Resource:          r,
		PublicKeyOpenssh:  graph.OutputOf[string](r, "publicKeyOpenssh"),
		PublicKeyPem:      graph.OutputOf[string](r, "publicKeyPem"),
		PrivateKeyPem:     graph.OutputOf[string](r, "privateKeyPem"),
		PrivateKeyOpenssh: graph.OutputOf[string](r, "privateKeyOpenssh"),
	}, nil
}
