// Package kubeconfig decodes and validates kubeconfig material returned by
// managed cluster credential APIs.
package kubeconfig

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/yaml"
)

var (
	ErrNoKubeconfig        = errors.New("credential response contains no kubeconfig")
	ErrMultipleKubeconfigs = errors.New("credential response contains more than one kubeconfig")
)

// Decode decodes a base64 encoded kubeconfig blob into plaintext.
func Decode(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("decode kubeconfig: %w", err)
	}
	return string(data), nil
}

// SelectSingle returns the only element of items. Managed cluster credential
// APIs return a list; this program addresses exactly one context, so an empty
// or multi-element list is an error rather than an implicit pick of index 0.
func SelectSingle[T any](items []T) (T, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, ErrNoKubeconfig
	case 1:
		return items[0], nil
	default:
		return zero, fmt.Errorf("%w: got %d", ErrMultipleKubeconfigs, len(items))
	}
}

// LoadAndNormalize loads kubeconfig bytes and returns a minimal config
// containing a single context, cluster, and authinfo. It optionally sets the
// default namespace of the context.
func LoadAndNormalize(data []byte, nsName string) (*clientcmdapi.Config, error) {
	cfg, err := clientcmd.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse kubeconfig: %w", err)
	}

	// Determine current context name
	curCtxName := cfg.CurrentContext
	if curCtxName == "" {
		if len(cfg.Contexts) != 1 {
			return nil, fmt.Errorf("kubeconfig has no current context")
		}
		for k := range cfg.Contexts {
			curCtxName = k
		}
		cfg.CurrentContext = curCtxName
	} else if cfg.Contexts[curCtxName] == nil {
		return nil, fmt.Errorf("context %q not found in kubeconfig", curCtxName)
	}

	// Keep only the selected context and inline referenced files
	if err := clientcmdapi.MinifyConfig(cfg); err != nil {
		return nil, fmt.Errorf("minify kubeconfig: %w", err)
	}
	if err := clientcmdapi.FlattenConfig(cfg); err != nil {
		return nil, fmt.Errorf("flatten kubeconfig: %w", err)
	}

	curCtx := cfg.Contexts[cfg.CurrentContext]
	if _, ok := cfg.Clusters[curCtx.Cluster]; !ok {
		return nil, fmt.Errorf("referenced cluster %q not found", curCtx.Cluster)
	}
	if _, ok := cfg.AuthInfos[curCtx.AuthInfo]; !ok {
		return nil, fmt.Errorf("referenced user %q not found", curCtx.AuthInfo)
	}
	if nsName != "" {
		curCtx.Namespace = nsName
	}
	return cfg, nil
}

// Server returns the API server URL of the current context.
func Server(cfg *clientcmdapi.Config) string {
	if cfg == nil {
		return ""
	}
	ctx := cfg.Contexts[cfg.CurrentContext]
	if ctx == nil {
		return ""
	}
	if c := cfg.Clusters[ctx.Cluster]; c != nil {
		return c.Server
	}
	return ""
}

// Print prints cfg to writer in yaml or json.
func Print(w io.Writer, cfg *clientcmdapi.Config, format string) error {
	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return fmt.Errorf("serialize kubeconfig: %w", err)
	}
	if format == "json" {
		j, err := yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("convert to json: %w", err)
		}
		_, err = w.Write(j)
		return err
	}
	_, err = w.Write(data)
	return err
}
