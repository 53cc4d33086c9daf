package oracle

import (
	"fmt"

	"invox/internal/config"
	"invox/internal/port"
)

// ProviderFactory is a function that creates an Oracle from a provider config.
type ProviderFactory func(cfg *config.OracleProviderConfig) (port.Oracle, error)

// registry of oracle provider factories, populated explicitly via
// RegisterProvider at startup.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an oracle provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewOracle creates an Oracle from a provider config using the registered
// factory.
func NewOracle(cfg *config.OracleProviderConfig) (port.Oracle, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown oracle provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
