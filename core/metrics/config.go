package metrics

import (
	"fmt"

	"github.com/kilianp07/hems/core/factory"
)

// Config lists the metrics sinks to fan records out to.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Validate rejects untyped sinks and a second prometheus sink, which would
// register its collectors twice.
func (c Config) Validate() error {
	prom := 0
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: type is required", i)
		}
		if s.Type == "prometheus" {
			prom++
		}
	}
	if prom > 1 {
		return fmt.Errorf("prometheus sink configured %d times", prom)
	}
	return nil
}
