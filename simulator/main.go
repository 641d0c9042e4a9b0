// Command simulator plays an evcc installation on MQTT: a home battery,
// PV and one charger whose vehicle plugs in on a daily schedule. It obeys
// mode commands so the decision core can be exercised without hardware.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilianp07/hems/core/forecast"
	coremqtt "github.com/kilianp07/hems/core/mqtt"
	"github.com/kilianp07/hems/core/model"
)

func main() {
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	site := newSite(cfg)
	cli, err := newMQTTClient(cfg.Broker, "evcc-sim")
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer cli.Disconnect(250)

	pub := publisher{cli: cli, topics: coremqtt.Topics{Prefix: cfg.TopicPrefix}, loadpoint: cfg.Loadpoint}
	if tok := cli.Subscribe(pub.topics.ModeSet(cfg.Loadpoint), 1, onModeSet(site)); tok.Wait() && tok.Error() != nil {
		log.Fatalf("subscribe: %v", tok.Error())
	}
	run(ctx, site, pub, cfg)
}

func newSite(cfg Config) *Site {
	plugAt, _ := minuteOfDay(cfg.PlugAt)
	unplugAt, _ := minuteOfDay(cfg.UnplugAt)
	profile := forecast.Baseline{PVPeakKW: cfg.PVPeakKW, ConsumptionKW: cfg.LoadKW}
	profile.SetDefaults()
	site := &Site{
		Profile: profile,
		Home: &Battery{
			CapacityKWh:     cfg.HomeCapacityKWh,
			SoC:             cfg.HomeSoC,
			ChargeRateKW:    cfg.HomeRateKW,
			DischargeRateKW: cfg.HomeRateKW,
		},
		Vehicle: &Battery{
			CapacityKWh:  cfg.VehicleCapacityKWh,
			SoC:          cfg.VehicleSoC,
			ChargeRateKW: cfg.VehicleChargeKW,
		},
		Name:     cfg.Vehicle,
		PlugAt:   plugAt,
		UnplugAt: unplugAt,
	}
	if m, ok := model.ParseChargeMode(cfg.InitialMode); ok {
		site.SetMode(m)
	}
	return site
}

func run(ctx context.Context, site *Site, pub publisher, cfg Config) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	simNow := time.Now()
	step := time.Duration(float64(cfg.Interval) * cfg.Speed)
	for {
		st := site.Step(simNow, step)
		if err := pub.publish(st, site.Name); err != nil {
			log.Printf("%v", err)
		}
		log.Printf("%s mode=%s connected=%t ev=%.1f%% battery=%.1f%% charge=%.1fkW",
			simNow.Format("15:04"), st.Mode, st.Connected, st.VehicleSoC, st.BatterySoC, st.ChargeKW)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			simNow = simNow.Add(step)
		}
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "evcc", "evcc MQTT topic prefix")
	flag.IntVar(&cfg.Loadpoint, "loadpoint", 1, "loadpoint index")
	flag.StringVar(&cfg.Vehicle, "vehicle", "car", "vehicle name reported on the loadpoint")
	flag.DurationVar(&cfg.Interval, "interval", 5*time.Second, "publish interval")
	flag.Float64Var(&cfg.Speed, "speed", 1, "simulated seconds per wall clock second")
	flag.Float64Var(&cfg.VehicleCapacityKWh, "vehicle-capacity", 60, "vehicle battery capacity kWh")
	flag.Float64Var(&cfg.VehicleChargeKW, "vehicle-charge-kw", 11, "charger power kW")
	flag.Float64Var(&cfg.VehicleSoC, "vehicle-soc", 30, "initial vehicle SoC percent")
	flag.Float64Var(&cfg.HomeCapacityKWh, "battery-capacity", 10, "home battery capacity kWh")
	flag.Float64Var(&cfg.HomeRateKW, "battery-rate-kw", 5, "home battery charge and discharge power kW")
	flag.Float64Var(&cfg.HomeSoC, "battery-soc", 50, "initial home battery SoC percent")
	flag.Float64Var(&cfg.PVPeakKW, "pv-peak-kw", 6, "PV noon peak kW")
	flag.Float64Var(&cfg.LoadKW, "load-kw", 0.5, "household base load kW")
	flag.StringVar(&cfg.PlugAt, "plug-at", "18:00", "time of day the vehicle plugs in")
	flag.StringVar(&cfg.UnplugAt, "unplug-at", "07:30", "time of day the vehicle leaves")
	flag.StringVar(&cfg.InitialMode, "mode", "pv", "initial charger mode")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}
