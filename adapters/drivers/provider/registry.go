package providerdrv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kompox/aksgraph/domain/graph"
)

// driverFactory is a constructor function for a provider driver. Settings
// keys are lower case.
type driverFactory func(settings map[string]string) (Driver, error)

// registry holds registered drivers by package name.
var registry = map[string]driverFactory{}

// Register makes a driver available by the given package name. Drivers
// should call this from their init() function.
func Register(name string, factory driverFactory) {
	registry[name] = factory
}

// GetDriverFactory returns the driver factory function for the given name.
func GetDriverFactory(name string) (driverFactory, bool) {
	factory, exists := registry[name]
	return factory, exists
}

// Registry instantiates drivers from registered factories. Default drivers
// are built from per package settings and cached; explicit provider
// declarations get a fresh driver built from their inputs.
type Registry struct {
	settings func(pkg string) map[string]string

	mu       sync.Mutex
	defaults map[string]Driver
}

// NewRegistry returns a Registry reading default settings through settings.
// A nil settings function means no settings.
func NewRegistry(settings func(pkg string) map[string]string) *Registry {
	if settings == nil {
		settings = func(string) map[string]string { return nil }
	}
	return &Registry{settings: settings, defaults: map[string]Driver{}}
}

// Default returns the default driver of pkg.
func (r *Registry) Default(_ context.Context, pkg string) (Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.defaults[pkg]; ok {
		return d, nil
	}
	factory, ok := GetDriverFactory(pkg)
	if !ok {
		return nil, fmt.Errorf("unknown provider driver: %s", pkg)
	}
	d, err := factory(lowerKeys(r.settings(pkg)))
	if err != nil {
		return nil, fmt.Errorf("failed to create driver %s: %w", pkg, err)
	}
	r.defaults[pkg] = d
	return d, nil
}

// Configure returns a driver of pkg configured with the inputs of an
// explicit provider declaration layered over the default settings.
func (r *Registry) Configure(_ context.Context, pkg string, inputs graph.PropertyMap) (Driver, error) {
	factory, ok := GetDriverFactory(pkg)
	if !ok {
		return nil, fmt.Errorf("unknown provider driver: %s", pkg)
	}
	if inputs.ContainsUnknowns() {
		return nil, fmt.Errorf("configure %s: provider inputs are not known yet", pkg)
	}
	settings := lowerKeys(r.settings(pkg))
	if settings == nil {
		settings = map[string]string{}
	}
	for k, v := range inputs {
		s, err := settingString(graph.Plain(v))
		if err != nil {
			return nil, fmt.Errorf("configure %s: %s: %w", pkg, k, err)
		}
		settings[strings.ToLower(k)] = s
	}
	d, err := factory(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver %s: %w", pkg, err)
	}
	return d, nil
}

func settingString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func lowerKeys(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
