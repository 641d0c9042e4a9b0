package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/planner"
	"github.com/kilianp07/hems/infra/forecast"
	"github.com/kilianp07/hems/infra/logger"
)

var planFlags struct {
	forecast  string
	chart     string
	soc       float64
	floor     float64
	vehicle   string
	evSoC     float64
	departure time.Duration
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a dispatch plan offline from a forecast file",
	RunE:  planOffline,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.forecast, "forecast", "", "forecast file (yaml or json)")
	f.StringVar(&planFlags.chart, "chart", "", "write an HTML chart of the plan to this file")
	f.Float64Var(&planFlags.soc, "soc", 50, "home battery SoC in percent")
	f.Float64Var(&planFlags.floor, "floor", 0, "battery floor in percent, defaults to the configured default floor")
	f.StringVar(&planFlags.vehicle, "vehicle", "", "configured vehicle to charge")
	f.Float64Var(&planFlags.evSoC, "ev-soc", 0, "vehicle SoC in percent")
	f.DurationVar(&planFlags.departure, "departure", 0, "time until the vehicle leaves, 0 for the whole horizon")
	_ = planCmd.MarkFlagRequired("forecast")
	rootCmd.AddCommand(planCmd)
}

func planOffline(cmd *cobra.Command, args []string) error {
	fc, err := forecast.LoadFile(planFlags.forecast)
	if err != nil {
		return err
	}

	// The configuration is optional here; defaults plan a stock battery.
	var cfg config.Config
	if cmd.Flags().Changed("config") {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	} else {
		cfg.SetDefaults()
	}

	in := planner.Input{Forecast: fc, Now: fc.Start, BatterySoC: planFlags.soc, Floor: planFlags.floor}
	if in.Floor <= 0 {
		in.Floor = cfg.Buffer.DefaultFloor
	}
	if planFlags.vehicle != "" {
		v, ok := findVehicle(cfg.Vehicles, planFlags.vehicle)
		if !ok {
			return fmt.Errorf("vehicle %q is not configured", planFlags.vehicle)
		}
		ev := &planner.EVDemand{
			VehicleID:   v.ID,
			SoC:         planFlags.evSoC,
			TargetSoC:   v.TargetSoC,
			CapacityKWh: v.CapacityKWh,
			MaxKW:       v.MaxKW,
		}
		if planFlags.departure > 0 {
			ev.Deadline = fc.Start.Add(planFlags.departure)
		}
		in.EV = ev
	}

	plan := planner.New(cfg.Planner, logger.New("planner")).Plan(in)
	if err := printPlan(cmd.OutOrStdout(), plan); err != nil {
		return err
	}
	if planFlags.chart == "" {
		return nil
	}
	f, err := os.Create(planFlags.chart)
	if err != nil {
		return err
	}
	defer f.Close()
	return renderPlanChart(f, plan)
}

func findVehicle(vs []model.Vehicle, id string) (model.Vehicle, bool) {
	for _, v := range vs {
		if v.ID == id {
			return v, true
		}
	}
	return model.Vehicle{}, false
}

func printPlan(w io.Writer, plan model.PlanHorizon) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPRICE\tZONE\tPV\tLOAD\tBATTERY\tKW\tSOC\tEV KW\tGRID\tWHY")
	for _, s := range plan.Slots {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%.2f\t%.2f\t%s\t%.1f\t%.1f\t%.1f\t%.2f\t%s\n",
			s.Start.Local().Format("Mon 15:04"), s.Price, s.PriceZone, s.PV, s.Consumption,
			s.Battery, s.BatteryKW, s.BatterySoC, s.EVKW, s.GridKWh, s.Explanation)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	sum := plan.Summary
	_, err := fmt.Fprintf(w, "\nsolver %s, projected cost %.2f, import %.2f kWh, export %.2f kWh, floor %.0f%%",
		sum.Solver, sum.ProjectedCost, sum.ImportKWh, sum.ExportKWh, sum.Floor)
	if err == nil && sum.DeadlineRelaxed {
		_, err = fmt.Fprint(w, ", deadline relaxed")
	}
	if err == nil {
		_, err = fmt.Fprintln(w)
	}
	return err
}

// renderPlanChart draws prices, battery SoC and EV power over the horizon.
func renderPlanChart(w io.Writer, plan model.PlanHorizon) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Dispatch plan", Subtitle: "solver " + plan.Summary.Solver}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Slot"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	xAxis := make([]string, 0, len(plan.Slots))
	var price, soc, ev []opts.LineData
	for _, s := range plan.Slots {
		xAxis = append(xAxis, s.Start.Local().Format("15:04"))
		price = append(price, opts.LineData{Value: s.Price * 100})
		soc = append(soc, opts.LineData{Value: s.BatterySoC})
		ev = append(ev, opts.LineData{Value: s.EVKW})
	}
	line.SetXAxis(xAxis).
		AddSeries("Price (ct/kWh)", price).
		AddSeries("Battery SoC (%)", soc).
		AddSeries("EV (kW)", ev)
	return line.Render(w)
}
