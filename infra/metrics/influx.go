package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/infra/logger"
)

// InfluxSink writes cycles, plans and controller activity to InfluxDB using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordCycle writes one "cycle" point.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cycle").
		AddTag("skipped", strconv.FormatBool(rec.Skipped)).
		AddTag("degraded", strconv.FormatBool(rec.Degraded))
	if rec.Solver != "" {
		p = p.AddTag("solver", rec.Solver)
	}
	if rec.VehicleID != "" {
		p = p.AddTag("vehicle_id", rec.VehicleID)
	}
	p = p.AddField("duration_ms", round3(rec.Duration.Seconds()*1000))
	if rec.Skipped {
		p = p.AddField("reason", rec.Reason)
	} else {
		p = p.AddField("projected_cost", round3(rec.ProjectedCost)).
			AddField("import_kwh", round3(rec.ImportKWh)).
			AddField("export_kwh", round3(rec.ExportKWh)).
			AddField("floor", round3(rec.Floor)).
			AddField("urgency", round3(rec.Urgency)).
			AddField("deadline_relaxed", rec.DeadlineRelaxed)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(rec.Time))
}

// RecordPlan writes one "plan_slot" point per slot of the plan, timestamped
// at the slot start.
func (s *InfluxSink) RecordPlan(plan model.PlanHorizon) error {
	if len(plan.Slots) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(plan.Slots))
	for _, sl := range plan.Slots {
		points = append(points, write.NewPointWithMeasurement("plan_slot").
			AddTag("price_zone", string(sl.PriceZone)).
			AddTag("battery_action", string(sl.Battery)).
			AddField("price", round3(sl.Price)).
			AddField("battery_kw", round3(sl.BatteryKW)).
			AddField("battery_soc", round3(sl.BatterySoC)).
			AddField("ev_kw", round3(sl.EVKW)).
			AddField("grid_kwh", round3(sl.GridKWh)).
			AddField("cost", round3(sl.Cost)).
			SetTime(sl.Start))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordBuffer writes a "buffer_event" point.
func (s *InfluxSink) RecordBuffer(ev model.BufferEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("buffer_event").
		AddTag("time_of_day", string(ev.TimeOfDay)).
		AddTag("applied", strconv.FormatBool(ev.Applied)).
		AddField("pv_confidence", round3(ev.PVConfidence)).
		AddField("price_spread", round3(ev.PriceSpread)).
		AddField("previous_floor", round3(ev.PreviousFloor)).
		AddField("new_floor", round3(ev.NewFloor)).
		SetTime(ev.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordMode writes a "mode_event" point.
func (s *InfluxSink) RecordMode(rec coremetrics.ModeRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("mode_event").
		AddTag("action", rec.Action)
	if rec.Mode != model.ModeNone {
		p = p.AddTag("mode", string(rec.Mode))
	}
	p = p.AddField("success", rec.Success).SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBoost writes a "boost_event" point.
func (s *InfluxSink) RecordBoost(rec coremetrics.BoostRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("boost_event").
		AddTag("action", rec.Action).
		AddField("vehicle_id", rec.VehicleID).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
