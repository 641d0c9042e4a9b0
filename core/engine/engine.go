// Package engine runs the decision cycle. Each cycle reads the inputs once,
// runs buffer, sequencer, planner and mode controller in that order and
// publishes one snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/boost"
	"github.com/kilianp07/hems/core/buffer"
	"github.com/kilianp07/hems/core/departure"
	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/modecontrol"
	"github.com/kilianp07/hems/core/monitoring"
	"github.com/kilianp07/hems/core/planner"
	"github.com/kilianp07/hems/core/sequencer"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/internal/eventbus"
)

// ErrSoCUnavailable marks a cycle skipped because a state of charge could
// not be read.
var ErrSoCUnavailable = errors.New("state of charge unavailable")

// BatteryReader reads the home battery state of charge in percent.
type BatteryReader interface {
	BatterySoC(ctx context.Context) (float64, error)
}

// VehicleReader reads the telemetry of the configured vehicles.
type VehicleReader interface {
	Vehicles(ctx context.Context, ids []string) ([]model.VehicleState, error)
}

// ChargerReader reads the mode currently set on the charger.
type ChargerReader interface {
	Mode(ctx context.Context) (model.ChargeMode, error)
}

// ForecastResolver returns the forecast of a cycle. It always returns a
// usable forecast; the error explains a degraded one.
type ForecastResolver interface {
	Resolve(ctx context.Context, now time.Time) (model.Forecast, error)
}

// Deps are the components a cycle drives. All fields except Events, Log
// and Clock are required.
type Deps struct {
	Vehicles  []model.Vehicle
	Forecast  ForecastResolver
	Battery   BatteryReader
	Telemetry VehicleReader
	Charger   ChargerReader
	Planner   *planner.Planner
	Sequencer *sequencer.Sequencer
	Buffer    *buffer.Calculator
	Mode      *modecontrol.Controller
	Boost     *boost.Manager
	Departure *departure.Tracker
	Store     *state.Store
	Events    *eventbus.TypedBus[events.Event]
	Log       logger.Logger
	Clock     func() time.Time
}

func (d Deps) validate() error {
	switch {
	case len(d.Vehicles) == 0:
		return fmt.Errorf("engine: at least one vehicle is required")
	case d.Forecast == nil, d.Battery == nil, d.Telemetry == nil, d.Charger == nil:
		return fmt.Errorf("engine: forecast, battery, telemetry and charger readers are required")
	case d.Planner == nil, d.Sequencer == nil, d.Buffer == nil, d.Mode == nil:
		return fmt.Errorf("engine: planner, sequencer, buffer and mode controller are required")
	case d.Boost == nil, d.Departure == nil, d.Store == nil:
		return fmt.Errorf("engine: boost, departure and state store are required")
	}
	for _, v := range d.Vehicles {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Engine owns the cycle loop and the charge request registry.
type Engine struct {
	cfg      Config
	d        Deps
	log      logger.Logger
	now      func() time.Time
	ids      []string
	vehicles map[string]model.Vehicle
	trigger  chan struct{}

	// cycleMu serialises cycles. cmdMu orders async commands against the
	// cycle reads of boost and departure state.
	cycleMu sync.Mutex
	cmdMu   sync.Mutex

	requests   map[string]*model.ChargeRequest
	seq        uint64
	plugged    map[string]bool
	lastBuffer time.Time
}

// New wires an engine. Nothing runs until Run or RunOnce is called.
func New(cfg Config, d Deps) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	e := &Engine{
		cfg:      cfg,
		d:        d,
		log:      logger.OrNop(d.Log),
		now:      d.Clock,
		vehicles: make(map[string]model.Vehicle, len(d.Vehicles)),
		trigger:  make(chan struct{}, 1),
		requests: make(map[string]*model.ChargeRequest),
		plugged:  make(map[string]bool),
	}
	for _, v := range d.Vehicles {
		e.ids = append(e.ids, v.ID)
		e.vehicles[v.ID] = v
	}
	return e, nil
}

// Trigger asks for an early cycle. Triggers arriving while one is pending
// are merged.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Run executes a cycle immediately, then on every tick and trigger until
// ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Infof("decision loop started, interval %s", e.cfg.Interval)
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	e.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Infof("decision loop stopped")
			return ctx.Err()
		case <-ticker.C:
			e.RunOnce(ctx)
		case <-e.trigger:
			e.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single cycle and returns the published snapshot. A panic
// inside the cycle is reported and the previous snapshot is kept.
func (e *Engine) RunOnce(ctx context.Context) *state.Snapshot {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	var snap *state.Snapshot
	err := monitoring.Protect(map[string]string{"module": "engine"}, func() {
		snap = e.cycle(ctx)
	})
	if err != nil {
		e.log.Errorf("decision cycle aborted: %v", err)
		return e.d.Store.Load()
	}
	return snap
}

func (e *Engine) publishEvent(ev events.Event) {
	if e.d.Events != nil {
		e.d.Events.Publish(ev)
	}
}
