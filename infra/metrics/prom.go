package metrics

import (
	"strconv"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes decision cycle, buffer, mode and boost activity as
// Prometheus metrics.
type PromSink struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	cost     prometheus.Gauge
	floor    prometheus.Gauge
	urgency  prometheus.Gauge
	recalcs  *prometheus.CounterVec
	modes    *prometheus.CounterVec
	boosts   *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The HTTP endpoint serving them is started by the API server.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hems_cycles_total",
			Help: "Decision cycles by solver and outcome",
		}, []string{"solver", "skipped"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hems_cycle_duration_seconds",
			Help:    "Wall time of a decision cycle",
			Buckets: prometheus.DefBuckets,
		}),
		cost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hems_plan_projected_cost_eur",
			Help: "Projected cost of the current plan",
		}),
		floor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hems_battery_floor_percent",
			Help: "Battery floor applied by the last cycle",
		}),
		urgency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hems_top_request_urgency",
			Help: "Urgency score of the selected charge request",
		}),
		recalcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hems_buffer_recalculations_total",
			Help: "Buffer floor recalculations by time of day and application",
		}, []string{"time_of_day", "applied"}),
		modes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hems_mode_actions_total",
			Help: "Charger mode commands and override transitions",
		}, []string{"action", "mode", "success"}),
		boosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hems_boost_actions_total",
			Help: "Boost lifecycle steps",
		}, []string{"action"}),
	}
	var err error
	if s.cycles, err = register(reg, s.cycles); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, s.cost); err != nil {
		return nil, err
	}
	if s.floor, err = register(reg, s.floor); err != nil {
		return nil, err
	}
	if s.urgency, err = register(reg, s.urgency); err != nil {
		return nil, err
	}
	if s.recalcs, err = register(reg, s.recalcs); err != nil {
		return nil, err
	}
	if s.modes, err = register(reg, s.modes); err != nil {
		return nil, err
	}
	if s.boosts, err = register(reg, s.boosts); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the existing collector when c was registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle counts the cycle and updates the plan gauges.
func (s *PromSink) RecordCycle(rec coremetrics.CycleRecord) error {
	solver := rec.Solver
	if solver == "" {
		solver = "none"
	}
	s.cycles.WithLabelValues(solver, strconv.FormatBool(rec.Skipped)).Inc()
	s.duration.Observe(rec.Duration.Seconds())
	if rec.Skipped {
		return nil
	}
	s.cost.Set(rec.ProjectedCost)
	s.floor.Set(rec.Floor)
	s.urgency.Set(rec.Urgency)
	return nil
}

// RecordBuffer counts a floor recalculation.
func (s *PromSink) RecordBuffer(ev model.BufferEvent) error {
	s.recalcs.WithLabelValues(string(ev.TimeOfDay), strconv.FormatBool(ev.Applied)).Inc()
	return nil
}

// RecordMode counts a mode controller action.
func (s *PromSink) RecordMode(rec coremetrics.ModeRecord) error {
	s.modes.WithLabelValues(rec.Action, string(rec.Mode), strconv.FormatBool(rec.Success)).Inc()
	return nil
}

// RecordBoost counts a boost lifecycle step.
func (s *PromSink) RecordBoost(rec coremetrics.BoostRecord) error {
	s.boosts.WithLabelValues(rec.Action).Inc()
	return nil
}
