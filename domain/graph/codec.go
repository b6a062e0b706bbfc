package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// secretKey tags an encrypted value in persisted form.
const secretKey = "__aksgraph_secret"

// ErrNoCrypter is returned when secrets must be persisted or read without a
// configured crypter.
var ErrNoCrypter = errors.New("secret values present but no secrets crypter configured")

// Crypter encrypts and decrypts sensitive values before they are persisted.
type Crypter interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// EncodeSecrets returns m in persistable form: every Secret is replaced by
// an object holding its ciphertext. Computed values cannot be persisted.
func EncodeSecrets(m PropertyMap, c Crypter) (map[string]any, error) {
	v, err := encodeValue(map[string]any(m), c)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}

func encodeValue(v any, c Crypter) (any, error) {
	switch t := v.(type) {
	case Computed:
		return nil, errors.New("unknown value cannot be persisted")
	case Secret:
		if c == nil {
			return nil, ErrNoCrypter
		}
		plain, err := json.Marshal(Plain(t.Element))
		if err != nil {
			return nil, fmt.Errorf("marshal secret: %w", err)
		}
		ct, err := c.Encrypt(plain)
		if err != nil {
			return nil, fmt.Errorf("encrypt secret: %w", err)
		}
		return map[string]any{secretKey: ct}, nil
	case PropertyMap:
		return encodeValue(map[string]any(t), c)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ev, err := encodeValue(e, c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			ev, err := encodeValue(e, c)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	default:
		return v, nil
	}
}

// DecodeSecrets reverses EncodeSecrets.
func DecodeSecrets(m map[string]any, c Crypter) (PropertyMap, error) {
	v, err := decodeValue(m, c)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return PropertyMap(out), nil
}

func decodeValue(v any, c Crypter) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if ct, ok := t[secretKey].(string); ok && len(t) == 1 {
			if c == nil {
				return nil, ErrNoCrypter
			}
			plain, err := c.Decrypt(ct)
			if err != nil {
				return nil, fmt.Errorf("decrypt secret: %w", err)
			}
			var e any
			if err := json.Unmarshal(plain, &e); err != nil {
				return nil, fmt.Errorf("unmarshal secret: %w", err)
			}
			return Secret{Element: e}, nil
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			dv, err := decodeValue(e, c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = dv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			dv, err := decodeValue(e, c)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	default:
		return v, nil
	}
}
