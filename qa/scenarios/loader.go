// Package scenarios replays planning situations described in YAML and
// checks the resulting plan against expectations.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/hems/core/model"
)

// Hourly series are expanded to four 15 minute slots. Energy series are in
// kWh per hour and split evenly across the slots.
type Hourly struct {
	Price       []float64 `yaml:"price"`
	PV          []float64 `yaml:"pv"`
	Consumption []float64 `yaml:"consumption"`
}

type VehicleDef struct {
	ID          string        `yaml:"id"`
	SoC         float64       `yaml:"soc"`
	TargetSoC   float64       `yaml:"target_soc"`
	CapacityKWh float64       `yaml:"capacity_kwh"`
	MaxKW       float64       `yaml:"max_kw"`
	DepartureIn time.Duration `yaml:"departure_in"`
}

type Expected struct {
	Solver          string   `yaml:"solver,omitempty"`
	EVTargetReached *bool    `yaml:"ev_target_reached,omitempty"`
	DeadlineRelaxed *bool    `yaml:"deadline_relaxed,omitempty"`
	FloorRespected  bool     `yaml:"floor_respected"`
	MaxCost         *float64 `yaml:"max_cost,omitempty"`
	// EVMaxPrice bounds the price of every slot the vehicle charges in.
	EVMaxPrice *float64 `yaml:"ev_max_price,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Start       time.Time      `yaml:"start"`
	Hourly      Hourly         `yaml:"hourly"`
	BatterySoC  float64        `yaml:"battery_soc"`
	Floor       float64        `yaml:"floor"`
	BatteryKWh  float64        `yaml:"battery_kwh"`
	Vehicle     *VehicleDef    `yaml:"vehicle,omitempty"`
	Expected    Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Hourly.Price) == 0 {
		return nil, fmt.Errorf("scenario %s: hourly prices are required", path)
	}
	if sc.Start.IsZero() {
		sc.Start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	return &sc, nil
}

// Forecast expands the hourly series into a slot forecast.
func (s *Scenario) Forecast() model.Forecast {
	return model.Forecast{
		Start:       s.Start,
		Price:       model.ForecastSeries{Values: expand(s.Hourly.Price, len(s.Hourly.Price), 1), Maturity: 100},
		PV:          model.ForecastSeries{Values: expand(s.Hourly.PV, len(s.Hourly.Price), 0.25), Maturity: 100},
		Consumption: model.ForecastSeries{Values: expand(s.Hourly.Consumption, len(s.Hourly.Price), 0.25), Maturity: 100},
	}
}

// expand repeats every hourly value over four slots, scaled by k. Missing
// hours are zero.
func expand(hourly []float64, hours int, k float64) []float64 {
	out := make([]float64, 0, hours*4)
	for h := 0; h < hours; h++ {
		var v float64
		if h < len(hourly) {
			v = hourly[h] * k
		}
		for q := 0; q < 4; q++ {
			out = append(out, v)
		}
	}
	return out
}
