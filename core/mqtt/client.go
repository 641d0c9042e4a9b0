// Package mqtt describes the evcc topic layout shared by the MQTT adapter
// and the tests that drive it.
package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Loadpoint topic leaves published by evcc.
const (
	LeafMode        = "mode"
	LeafConnected   = "connected"
	LeafCharging    = "charging"
	LeafVehicleSoC  = "vehicleSoc"
	LeafVehicleName = "vehicleName"
)

// Topics builds and parses evcc topics under a common prefix.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return "evcc"
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Loadpoint returns the topic of a loadpoint value, e.g. evcc/loadpoints/1/mode.
func (t Topics) Loadpoint(n int, leaf string) string {
	return fmt.Sprintf("%s/loadpoints/%d/%s", t.prefix(), n, leaf)
}

// LoadpointWildcard matches every value of loadpoint n.
func (t Topics) LoadpointWildcard(n int) string {
	return fmt.Sprintf("%s/loadpoints/%d/+", t.prefix(), n)
}

// ModeSet is the command topic for the loadpoint mode.
func (t Topics) ModeSet(n int) string {
	return t.Loadpoint(n, LeafMode) + "/set"
}

// BatterySoC is the site battery state of charge topic.
func (t Topics) BatterySoC() string {
	return t.prefix() + "/site/batterySoc"
}

// ParseLoadpoint splits a loadpoint value topic into its index and leaf.
func (t Topics) ParseLoadpoint(topic string) (int, string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/loadpoints/")
	if !ok {
		return 0, "", false
	}
	idx, leaf, ok := strings.Cut(rest, "/")
	if !ok || leaf == "" || strings.Contains(leaf, "/") {
		return 0, "", false
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 1 {
		return 0, "", false
	}
	return n, leaf, true
}
