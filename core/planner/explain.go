package planner

import (
	"fmt"
	"strings"

	"github.com/kilianp07/hems/core/model"
)

// explain renders the human readable reason attached to a slot.
func explain(s model.DispatchSlot) string {
	parts := make([]string, 0, 3)
	switch s.Battery {
	case model.BatteryCharge:
		if s.PVSurplus() {
			parts = append(parts, fmt.Sprintf("battery charges %.1f kW from PV surplus", s.BatteryKW))
		} else {
			parts = append(parts, fmt.Sprintf("battery charges %.1f kW at %s price %.3f", s.BatteryKW, s.PriceZone, s.Price))
		}
	case model.BatteryDischarge:
		parts = append(parts, fmt.Sprintf("battery discharges %.1f kW at %s price %.3f", -s.BatteryKW, s.PriceZone, s.Price))
	default:
		parts = append(parts, "battery holds")
	}
	if s.EVCharge {
		if s.PVSurplus() {
			parts = append(parts, fmt.Sprintf("EV charges %.1f kW on PV surplus", s.EVKW))
		} else {
			parts = append(parts, fmt.Sprintf("EV charges %.1f kW at %s price", s.EVKW, s.PriceZone))
		}
	}
	if s.BestEffort {
		parts = append(parts, "EV target unreachable before departure, charging best effort")
	}
	return strings.Join(parts, "; ")
}
