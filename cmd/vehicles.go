package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kilianp07/hems/api/vehicles"
	"github.com/kilianp07/hems/core/model"
)

var boostDuration string

var boostCmd = &cobra.Command{
	Use:   "boost [vehicle]",
	Short: "Charge a vehicle at full power now",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := vehicles.BoostRequest{Duration: boostDuration}
		if len(args) == 1 {
			req.VehicleID = args[0]
		}
		var b model.Boost
		c := newAPIClient(cmd.Context(), apiAddr, apiToken)
		if err := c.do(cmd.Context(), http.MethodPost, "/api/boost", req, &b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "boosting %s until %s\n", b.VehicleID, b.Until.Local().Format("15:04"))
		return nil
	},
}

var boostCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the active boost",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(cmd.Context(), apiAddr, apiToken)
		if err := c.do(cmd.Context(), http.MethodDelete, "/api/boost", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "boost cancelled")
		return nil
	},
}

var departureCmd = &cobra.Command{
	Use:   "departure [vehicle] <when>",
	Short: "Set the next departure as a duration (2h30m) or a time of day (07:30)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := vehicles.DepartureRequest{Value: args[len(args)-1]}
		if len(args) == 2 {
			req.VehicleID = args[0]
		}
		var resp vehicles.DepartureResponse
		c := newAPIClient(cmd.Context(), apiAddr, apiToken)
		if err := c.do(cmd.Context(), http.MethodPost, "/api/departure", req, &resp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "departure set to %s\n", resp.Departure.Local().Format("Mon 15:04"))
		return nil
	},
}

func init() {
	boostCmd.Flags().StringVarP(&boostDuration, "duration", "d", "", "boost duration, e.g. 90m")
	boostCmd.AddCommand(boostCancelCmd)
	addAPIFlags(boostCmd)
	addAPIFlags(departureCmd)
	rootCmd.AddCommand(boostCmd, departureCmd)
}
