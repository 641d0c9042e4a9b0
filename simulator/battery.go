package main

import (
	"math"
	"sync"
	"time"
)

// Battery models a battery with charge and discharge limits. SoC is in
// percent.
type Battery struct {
	CapacityKWh     float64
	SoC             float64
	ChargeRateKW    float64
	DischargeRateKW float64
	mu              sync.Mutex
}

// ApplyPower updates the SoC for powerKW held during dt. Positive power
// charges, negative power discharges. It returns the power actually applied
// after enforcing rate and capacity limits.
func (b *Battery) ApplyPower(powerKW float64, dt time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	hours := dt.Hours()
	if hours <= 0 || b.CapacityKWh <= 0 {
		return 0
	}
	var applied float64
	switch {
	case powerKW > 0:
		p := math.Min(powerKW, b.ChargeRateKW)
		room := (100 - b.SoC) / 100 * b.CapacityKWh
		e := math.Min(p*hours, room)
		b.SoC += e / b.CapacityKWh * 100
		applied = e / hours
	case powerKW < 0:
		p := math.Min(-powerKW, b.DischargeRateKW)
		stored := b.SoC / 100 * b.CapacityKWh
		e := math.Min(p*hours, stored)
		b.SoC -= e / b.CapacityKWh * 100
		applied = -e / hours
	}
	b.SoC = math.Max(0, math.Min(100, b.SoC))
	return applied
}

func (b *Battery) Level() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.SoC
}
