package model

import "time"

// BatteryAction describes what the home battery does during a slot.
type BatteryAction string

const (
	BatteryHold      BatteryAction = "hold"
	BatteryCharge    BatteryAction = "charge"
	BatteryDischarge BatteryAction = "discharge"
)

// PriceZone classifies a slot price against the horizon distribution.
type PriceZone string

const (
	ZoneCheap     PriceZone = "cheap"
	ZoneModerate  PriceZone = "moderate"
	ZoneExpensive PriceZone = "expensive"
)

// DispatchSlot is one 15 minute unit of the plan.
type DispatchSlot struct {
	Index       int           `json:"index"`
	Start       time.Time     `json:"start"`
	Price       float64       `json:"price"`
	PriceZone   PriceZone     `json:"price_zone"`
	PV          float64       `json:"pv_kwh"`
	Consumption float64       `json:"consumption_kwh"`
	Battery     BatteryAction `json:"battery_action"`
	BatteryKW   float64       `json:"battery_kw"`
	EVCharge    bool          `json:"ev_charge"`
	EVKW        float64       `json:"ev_kw"`
	BatterySoC  float64       `json:"battery_soc"`
	EVSoC       float64       `json:"ev_soc"`
	GridKWh     float64       `json:"grid_kwh"`
	Cost        float64       `json:"cost"`
	BestEffort  bool          `json:"best_effort"`
	Explanation string        `json:"explanation"`
}

// PVSurplus reports whether forecast PV exceeds consumption in the slot.
func (s DispatchSlot) PVSurplus() bool { return s.PV > s.Consumption }

// PlanSummary aggregates the objective of a plan.
type PlanSummary struct {
	ProjectedCost   float64 `json:"projected_cost"`
	ImportKWh       float64 `json:"import_kwh"`
	ExportKWh       float64 `json:"export_kwh"`
	Solver          string  `json:"solver"`
	DeadlineRelaxed bool    `json:"deadline_relaxed"`
	EVVehicleID     string  `json:"ev_vehicle_id,omitempty"`
	P30             float64 `json:"p30"`
	P60             float64 `json:"p60"`
	Floor           float64 `json:"floor"`
}

// PlanHorizon is the full ordered plan produced by one planning cycle. It is
// never mutated after publication.
type PlanHorizon struct {
	CreatedAt time.Time      `json:"created_at"`
	Slots     []DispatchSlot `json:"slots"`
	Summary   PlanSummary    `json:"summary"`
}

// Current returns the first slot of the plan.
func (p PlanHorizon) Current() (DispatchSlot, bool) {
	if len(p.Slots) == 0 {
		return DispatchSlot{}, false
	}
	return p.Slots[0], true
}
