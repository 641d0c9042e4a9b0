package main

import (
	"math"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/model"
)

// minChargeKW is the lowest power a charger can deliver on one phase.
const minChargeKW = 1.4

// Site is one simulated home: PV, household load, the home battery and a
// single charger with its vehicle.
type Site struct {
	Profile forecast.Baseline
	Home    *Battery
	Vehicle *Battery
	Name    string
	// PlugAt and UnplugAt are minutes of day; the vehicle is connected from
	// PlugAt until UnplugAt, across midnight when PlugAt > UnplugAt.
	PlugAt, UnplugAt int

	mu        sync.Mutex
	mode      model.ChargeMode
	connected bool
	chargeKW  float64
}

// State is what the site publishes after a step.
type State struct {
	Mode       model.ChargeMode
	Connected  bool
	Charging   bool
	VehicleSoC float64
	BatterySoC float64
	ChargeKW   float64
}

func (s *Site) SetMode(m model.ChargeMode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Step advances the simulation by dt ending at now.
func (s *Site) Step(now time.Time, dt time.Duration) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = plugged(now, s.PlugAt, s.UnplugAt)
	f := s.Profile.Forecast(now, 1)
	slotHours := model.SlotDuration.Hours()
	surplus := (f.PV.At(0) - f.Consumption.At(0)) / slotHours

	s.chargeKW = 0
	if s.connected && s.Vehicle.Level() < 100 {
		var want float64
		switch s.mode {
		case model.ModeNow:
			want = s.Vehicle.ChargeRateKW
		case model.ModeMinPV:
			want = math.Max(minChargeKW, surplus)
		case model.ModePV:
			if surplus >= minChargeKW {
				want = surplus
			}
		}
		s.chargeKW = s.Vehicle.ApplyPower(want, dt)
	}
	// The home battery absorbs what is left of the surplus and covers the
	// remaining deficit.
	s.Home.ApplyPower(surplus-s.chargeKW, dt)

	return State{
		Mode:       s.mode,
		Connected:  s.connected,
		Charging:   s.chargeKW > 0,
		VehicleSoC: s.Vehicle.Level(),
		BatterySoC: s.Home.Level(),
		ChargeKW:   s.chargeKW,
	}
}

func plugged(now time.Time, plugAt, unplugAt int) bool {
	m := now.Hour()*60 + now.Minute()
	if plugAt == unplugAt {
		return true
	}
	if plugAt < unplugAt {
		return m >= plugAt && m < unplugAt
	}
	return m >= plugAt || m < unplugAt
}
