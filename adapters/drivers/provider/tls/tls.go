// Package tls implements the tls provider driver. Keys are generated locally
// and live only in the stack state.
package tls

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/domain/graph"
	"golang.org/x/crypto/ssh"
)

// Package is the provider package name of this driver.
const Package = "tls"

// TypePrivateKey is the type token of a generated key pair.
const TypePrivateKey = "tls:index:PrivateKey"

// Supported algorithms.
const (
	AlgorithmRSA     = "RSA"
	AlgorithmECDSA   = "ECDSA"
	AlgorithmED25519 = "ED25519"
)

const (
	defaultRSABits    = 2048
	defaultECDSACurve = "P224"
	minRSABits        = 1024
	maxRSABits        = 16384
)

var (
	// ErrUnsupportedAlgorithm is returned for algorithms other than RSA, ECDSA and ED25519.
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")
	// ErrInvalidKeySize is returned for RSA bit sizes or ECDSA curves that cannot be generated.
	ErrInvalidKeySize = errors.New("invalid key size")
)

var privateKeyReplaceKeys = []string{"algorithm", "rsaBits", "ecdsaCurve"}

type privateKeyInputs struct {
	Algorithm  string `json:"algorithm"`
	RsaBits    int    `json:"rsaBits"`
	EcdsaCurve string `json:"ecdsaCurve"`
}

type driver struct{}

func init() {
	providerdrv.Register(Package, func(map[string]string) (providerdrv.Driver, error) {
		return &driver{}, nil
	})
}

func (d *driver) ID() string { return Package }

func (d *driver) Check(_ context.Context, typ string, inputs graph.PropertyMap) error {
	if typ != TypePrivateKey {
		return fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, typ)
	}
	var in privateKeyInputs
	if err := providerdrv.DecodeInputs(inputs, &in); err != nil {
		return err
	}
	if v, ok := inputs["algorithm"]; ok && graph.IsComputed(v) {
		return nil
	}
	_, err := in.normalize()
	return err
}

// normalize validates in and fills defaults.
func (in privateKeyInputs) normalize() (privateKeyInputs, error) {
	in.Algorithm = strings.ToUpper(in.Algorithm)
	switch in.Algorithm {
	case AlgorithmRSA:
		if in.RsaBits == 0 {
			in.RsaBits = defaultRSABits
		}
		if in.RsaBits < minRSABits || in.RsaBits > maxRSABits {
			return in, fmt.Errorf("%w: rsaBits %d", ErrInvalidKeySize, in.RsaBits)
		}
	case AlgorithmECDSA:
		if in.EcdsaCurve == "" {
			in.EcdsaCurve = defaultECDSACurve
		}
		if _, err := curve(in.EcdsaCurve); err != nil {
			return in, err
		}
	case AlgorithmED25519:
	case "":
		return in, fmt.Errorf("%w: algorithm is required", ErrUnsupportedAlgorithm)
	default:
		return in, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, in.Algorithm)
	}
	return in, nil
}

func curve(name string) (elliptic.Curve, error) {
	switch strings.ToUpper(name) {
	case "P224":
		return elliptic.P224(), nil
	case "P256":
		return elliptic.P256(), nil
	case "P384":
		return elliptic.P384(), nil
	case "P521":
		return elliptic.P521(), nil
	}
	return nil, fmt.Errorf("%w: ecdsaCurve %s", ErrInvalidKeySize, name)
}

// Diff replaces the key on any input change.
func (d *driver) Diff(_ context.Context, typ string, olds, news graph.PropertyMap) (*providerdrv.DiffResult, error) {
	if typ != TypePrivateKey {
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, typ)
	}
	return providerdrv.DiffProperties(olds, news, privateKeyReplaceKeys...), nil
}

func (d *driver) Create(_ context.Context, req *providerdrv.CreateRequest) (*providerdrv.CreateResponse, error) {
	if req.Type != TypePrivateKey {
		return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, req.Type)
	}
	var in privateKeyInputs
	if err := providerdrv.DecodeInputs(req.Inputs, &in); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	key, err := generate(in)
	if err != nil {
		return nil, err
	}
	outputs, err := keyOutputs(in, key)
	if err != nil {
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	sum := sha1.Sum(pubDER)
	return &providerdrv.CreateResponse{ID: hex.EncodeToString(sum[:]), Outputs: outputs}, nil
}

func (d *driver) Update(_ context.Context, req *providerdrv.UpdateRequest) (graph.PropertyMap, error) {
	return nil, fmt.Errorf("%s cannot be updated in place", req.Type)
}

// Delete forgets the key; nothing exists outside the state.
func (d *driver) Delete(context.Context, *providerdrv.DeleteRequest) error { return nil }

func (d *driver) Invoke(_ context.Context, token string, _ graph.PropertyMap) (graph.PropertyMap, error) {
	return nil, fmt.Errorf("%w: %s", providerdrv.ErrUnknownType, token)
}

func generate(in privateKeyInputs) (crypto.Signer, error) {
	switch in.Algorithm {
	case AlgorithmRSA:
		key, err := rsa.GenerateKey(rand.Reader, in.RsaBits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
		}
		if err := key.Validate(); err != nil {
			return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
		}
		return key, nil
	case AlgorithmECDSA:
		c, err := curve(in.EcdsaCurve)
		if err != nil {
			return nil, err
		}
		key, err := ecdsa.GenerateKey(c, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ECDSA private key: %w", err)
		}
		return key, nil
	default:
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ED25519 private key: %w", err)
		}
		return key, nil
	}
}

// keyOutputs renders the key in PEM and OpenSSH formats. Private material is
// wrapped in graph.Secret. Keys OpenSSH cannot represent (ECDSA P224) get
// empty OpenSSH outputs.
func keyOutputs(in privateKeyInputs, key crypto.Signer) (graph.PropertyMap, error) {
	var privBlock *pem.Block
	switch k := key.(type) {
	case *rsa.PrivateKey:
		privBlock = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ECDSA private key: %w", err)
		}
		privBlock = &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}
	default:
		der, err := x509.MarshalPKCS8PrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal private key: %w", err)
		}
		privBlock = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}
	pubDER, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	out := graph.PropertyMap{
		"algorithm":                  in.Algorithm,
		"privateKeyPem":              graph.Secret{Element: string(pem.EncodeToMemory(privBlock))},
		"publicKeyPem":               string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		"privateKeyOpenssh":          graph.Secret{Element: ""},
		"publicKeyOpenssh":           "",
		"publicKeyFingerprintMd5":    "",
		"publicKeyFingerprintSha256": "",
	}
	if in.Algorithm == AlgorithmECDSA && strings.EqualFold(in.EcdsaCurve, "P224") {
		return out, nil
	}

	sshPub, err := ssh.NewPublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	sshPriv, err := ssh.MarshalPrivateKey(key, "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenSSH private key: %w", err)
	}
	out["publicKeyOpenssh"] = string(ssh.MarshalAuthorizedKey(sshPub))
	out["privateKeyOpenssh"] = graph.Secret{Element: string(pem.EncodeToMemory(sshPriv))}
	out["publicKeyFingerprintMd5"] = ssh.FingerprintLegacyMD5(sshPub)
	out["publicKeyFingerprintSha256"] = ssh.FingerprintSHA256(sshPub)
	return out, nil
}
