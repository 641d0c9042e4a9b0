package forecast

import "github.com/kilianp07/hems/core/factory"

var (
	providerRegistry = factory.NewRegistry[Provider]("forecast provider")
	priceRegistry    = factory.NewRegistry[PriceSource]("price source")
)

// RegisterProvider adds a forecast provider factory identified by name.
func RegisterProvider(name string, f factory.Factory[Provider]) error {
	return providerRegistry.Register(name, f)
}

// RegisterPriceSource adds a price source factory identified by name.
func RegisterPriceSource(name string, f factory.Factory[PriceSource]) error {
	return priceRegistry.Register(name, f)
}

// NewProvider builds the configured provider. An empty type yields nil so
// the resolver serves the baseline.
func NewProvider(cfg factory.ModuleConfig) (Provider, error) {
	if cfg.Type == "" {
		return nil, nil
	}
	return providerRegistry.Create(cfg)
}

// NewPriceSource builds the configured price source, nil when unset.
func NewPriceSource(cfg factory.ModuleConfig) (PriceSource, error) {
	if cfg.Type == "" {
		return nil, nil
	}
	return priceRegistry.Create(cfg)
}

func ProviderTypes() []string { return providerRegistry.Types() }

func PriceSourceTypes() []string { return priceRegistry.Types() }
