// Package plugins links the built-in module implementations into the
// binary and lists them per family.
package plugins

import (
	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/forecast"
	coremetrics "github.com/kilianp07/hems/core/metrics"

	// Registration happens in the init functions of these packages.
	_ "github.com/kilianp07/hems/infra/forecast"
	_ "github.com/kilianp07/hems/infra/metrics"
)

// Family is one configurable module family.
type Family struct {
	Key   string
	Types []string
}

// Known returns every module family with its registered type names, in
// configuration order.
func Known() []Family {
	return []Family{
		{Key: "buffer_store", Types: logging.BackendTypes()},
		{Key: "forecast.provider", Types: forecast.ProviderTypes()},
		{Key: "forecast.price", Types: forecast.PriceSourceTypes()},
		{Key: "metrics.sinks", Types: coremetrics.SinkTypes()},
	}
}
