// Package stackcfg loads per-stack configuration from Stack.<stack>.yaml.
//
// The file holds a single "config" map whose keys are namespaced by the
// project or provider package they belong to:
//
//	config:
//	  aksgraph:managedClusterName: my-aks
//	  azure-native:location: japaneast
//
// Every key can be overridden from the environment with
// AKSGRAPH_CONFIG_<KEY>, where KEY is the upper-cased key with ':', '.' and
// '-' replaced by '_'. Keys are case-insensitive.
package stackcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "AKSGRAPH_CONFIG_"

// EnvPassphrase holds the passphrase protecting secret state values.
const EnvPassphrase = EnvPrefix + "PASSPHRASE"

var (
	// ErrMissingConfig is returned by Require for unset keys.
	ErrMissingConfig = errors.New("missing required configuration")
	// ErrInvalidKey is returned for keys without a namespace.
	ErrInvalidKey = errors.New("configuration key must be namespaced as <namespace>:<name>")
)

// FileName returns the configuration file name of stack.
func FileName(stack string) string { return "Stack." + stack + ".yaml" }

// EnvKey returns the environment variable overriding key.
func EnvKey(key string) string {
	r := strings.NewReplacer(":", "_", ".", "_", "-", "_")
	return EnvPrefix + strings.ToUpper(r.Replace(key))
}

// Config is the resolved configuration of one stack.
type Config struct {
	path   string
	stack  string
	values map[string]string
	lookup func(string) (string, bool)
}

// Load reads dir/Stack.<stack>.yaml. A missing file yields an empty
// configuration.
func Load(dir, stack string) (*Config, error) {
	c := &Config{
		path:   filepath.Join(dir, FileName(stack)),
		stack:  stack,
		values: map[string]string{},
		lookup: os.LookupEnv,
	}
	if _, err := os.Stat(c.path); errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	// Keys contain ':' and may contain '.', so nested access is disabled.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(c.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	for k, val := range v.GetStringMapString("config") {
		c.values[strings.ToLower(k)] = val
	}
	return c, nil
}

// Stack returns the stack name.
func (c *Config) Stack() string { return c.stack }

// Path returns the configuration file path.
func (c *Config) Path() string { return c.path }

// Get returns the value of key, preferring the environment override.
func (c *Config) Get(key string) (string, bool) {
	if v, ok := c.lookup(EnvKey(key)); ok {
		return v, true
	}
	v, ok := c.values[strings.ToLower(key)]
	return v, ok
}

// GetOr returns the value of key or def when unset or empty.
func (c *Config) GetOr(key, def string) string {
	if v, ok := c.Get(key); ok && v != "" {
		return v
	}
	return def
}

// Require returns the value of key or ErrMissingConfig.
func (c *Config) Require(key string) (string, error) {
	v, ok := c.Get(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s (set it in %s or %s)", ErrMissingConfig, key, FileName(c.stack), EnvKey(key))
	}
	return v, nil
}

// Keys returns the keys set in the file, sorted.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Namespace returns a view of c that resolves bare keys within ns.
func (c *Config) Namespace(ns string) *View {
	return &View{cfg: c, ns: ns}
}

// Settings returns the keys of namespace pkg with the namespace stripped and
// lower cased, including environment overrides. It feeds provider drivers.
func (c *Config) Settings(pkg string) map[string]string {
	out := map[string]string{}
	prefix := strings.ToLower(pkg) + ":"
	for k, v := range c.values {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			out[name] = v
		}
	}
	envPrefix := EnvKey(pkg) + "_"
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if name, ok := strings.CutPrefix(k, envPrefix); ok && name != "" {
			out[strings.ToLower(name)] = v
		}
	}
	return out
}

// Set stores key=value in the configuration file, keeping other content.
func (c *Config) Set(key, value string) error {
	if ns, name, ok := strings.Cut(key, ":"); !ok || ns == "" || name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	doc := map[string]any{}
	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return err
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", c.path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	cfg, _ := doc["config"].(map[string]any)
	if cfg == nil {
		cfg = map[string]any{}
	}
	for k := range cfg {
		if strings.EqualFold(k, key) {
			delete(cfg, k)
		}
	}
	cfg[key] = value
	doc["config"] = cfg
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, out, 0o644); err != nil {
		return err
	}
	c.values[strings.ToLower(key)] = value
	return nil
}

// View resolves bare keys within a namespace.
type View struct {
	cfg *Config
	ns  string
}

// Get returns the value of ns:key.
func (v *View) Get(key string) (string, bool) { return v.cfg.Get(v.ns + ":" + key) }

// GetOr returns the value of ns:key or def.
func (v *View) GetOr(key, def string) string { return v.cfg.GetOr(v.ns+":"+key, def) }
