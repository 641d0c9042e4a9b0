package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownListsBuiltins(t *testing.T) {
	got := map[string][]string{}
	for _, f := range Known() {
		got[f.Key] = f.Types
	}
	assert.Equal(t, []string{"jsonl", "memory", "rotating", "sqlite"}, got["buffer_store"])
	assert.Equal(t, []string{"file"}, got["forecast.provider"])
	assert.Equal(t, []string{"tariff", "wholesale"}, got["forecast.price"])
	assert.Equal(t, []string{"influx", "nop", "prometheus"}, got["metrics.sinks"])
}
