package upload

import (
	"fmt"
	"sort"
	"strings"
)

// ProviderFactory creates a fresh provider instance.
type ProviderFactory func() Provider

// Registry holds all available upload providers.
var Registry = make(map[string]ProviderFactory)

// RegisterProvider makes a provider available under the given name.
// Later registrations under the same name win, which lets tests swap
// in capturing providers.
func RegisterProvider(name string, factory ProviderFactory) {
	Registry[name] = factory
}

// Names lists the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates a provider instance by name.
func NewProvider(name string) (Provider, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown upload provider %q (available: %s)",
			name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}

func init() {
	RegisterProvider("minio", func() Provider {
		return NewMinioProvider()
	})
}
