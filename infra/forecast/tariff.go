package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// TariffPeriod prices the daily window [From, To), both "HH:MM". A window
// with To before From wraps midnight.
type TariffPeriod struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Price float64 `json:"price"`
}

// TariffConfig is a fixed time-of-use tariff.
type TariffConfig struct {
	Default float64        `json:"default"`
	Periods []TariffPeriod `json:"periods"`
}

type window struct {
	from, to int
	price    float64
}

// Tariff serves prices from a fixed time-of-use schedule in the local zone
// of the requested start.
type Tariff struct {
	def     float64
	windows []window
}

func NewTariff(cfg TariffConfig) (*Tariff, error) {
	if cfg.Default <= 0 {
		return nil, fmt.Errorf("tariff: default price must be positive")
	}
	t := &Tariff{def: cfg.Default}
	for i, p := range cfg.Periods {
		from, err := minuteOfDay(p.From)
		if err != nil {
			return nil, fmt.Errorf("tariff period %d: %w", i, err)
		}
		to, err := minuteOfDay(p.To)
		if err != nil {
			return nil, fmt.Errorf("tariff period %d: %w", i, err)
		}
		t.windows = append(t.windows, window{from: from, to: to, price: p.Price})
	}
	return t, nil
}

func minuteOfDay(s string) (int, error) {
	tm, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("bad time %q: want HH:MM", s)
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

// At returns the price applying at t. The first matching period wins.
func (t *Tariff) At(at time.Time) float64 {
	m := at.Hour()*60 + at.Minute()
	for _, w := range t.windows {
		if w.from <= w.to {
			if m >= w.from && m < w.to {
				return w.price
			}
		} else if m >= w.from || m < w.to {
			return w.price
		}
	}
	return t.def
}

func (t *Tariff) Prices(ctx context.Context, start time.Time, slots int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if slots <= 0 {
		slots = model.SlotsPerDay
	}
	out := make([]float64, slots)
	for i := range out {
		out[i] = t.At(start.Add(time.Duration(i) * model.SlotDuration))
	}
	return out, nil
}
