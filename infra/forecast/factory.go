// Package forecast holds the forecast and tariff adapters: a forecast
// file reader, a fixed time-of-use tariff and the day-ahead market client.
package forecast

import (
	"fmt"

	"github.com/kilianp07/hems/core/factory"
	coreforecast "github.com/kilianp07/hems/core/forecast"
)

// init registers the built-in providers and price sources.
func init() {
	_ = coreforecast.RegisterProvider("file", func(conf map[string]any) (coreforecast.Provider, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("path is required")
		}
		return FileProvider{Path: c.Path}, nil
	})

	_ = coreforecast.RegisterPriceSource("tariff", func(conf map[string]any) (coreforecast.PriceSource, error) {
		var c TariffConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewTariff(c)
	})

	_ = coreforecast.RegisterPriceSource("wholesale", func(conf map[string]any) (coreforecast.PriceSource, error) {
		var c WholesaleConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewWholesaleClient(c)
	})
}
