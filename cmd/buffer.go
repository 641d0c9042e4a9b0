package cmd

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apibuffer "github.com/kilianp07/hems/api/buffer"
	"github.com/kilianp07/hems/core/model"
)

var bufferLimit int

var bufferCmd = &cobra.Command{
	Use:   "buffer",
	Short: "Inspect and control the dynamic battery buffer",
}

var bufferStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the buffer mode and recent recalculations",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(bufferLimit))
		var resp apibuffer.Response
		c := newAPIClient(cmd.Context(), apiAddr, apiToken)
		if err := c.do(cmd.Context(), http.MethodGet, "/api/buffer?"+q.Encode(), nil, &resp); err != nil {
			return err
		}
		printBufferStatus(cmd.OutOrStdout(), resp.Status)
		for _, ev := range resp.Events {
			applied := "simulated"
			if ev.Applied {
				applied = "applied"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %5.1f -> %5.1f  %-9s %s\n",
				ev.Timestamp.Format("2006-01-02 15:04"), ev.PreviousFloor, ev.NewFloor, applied, ev.Reason)
		}
		return nil
	},
}

var bufferGoLiveCmd = &cobra.Command{
	Use:   "golive",
	Short: "End the observation period and apply computed floors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return bufferCommand(cmd, "/api/buffer/golive")
	},
}

var bufferExtendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Keep the buffer in observation for another period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return bufferCommand(cmd, "/api/buffer/extend")
	},
}

var bufferResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Return to observation and restore the default floor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return bufferCommand(cmd, "/api/buffer/reset")
	},
}

func bufferCommand(cmd *cobra.Command, path string) error {
	var st model.BufferStatus
	c := newAPIClient(cmd.Context(), apiAddr, apiToken)
	if err := c.do(cmd.Context(), http.MethodPost, path, nil, &st); err != nil {
		return err
	}
	printBufferStatus(cmd.OutOrStdout(), st)
	return nil
}

func printBufferStatus(w io.Writer, st model.BufferStatus) {
	fmt.Fprintf(w, "mode:         %s\n", st.Mode)
	fmt.Fprintf(w, "active floor: %.1f%%\n", st.ActiveFloor)
	if st.Mode == model.BufferObservation {
		fmt.Fprintf(w, "elapsed:      %s\n", st.Elapsed.Round(time.Minute))
		fmt.Fprintf(w, "remaining:    %s\n", st.Remaining.Round(time.Minute))
		fmt.Fprintf(w, "extended:     %t\n", st.Extended)
	}
}

func init() {
	bufferStatusCmd.Flags().IntVarP(&bufferLimit, "limit", "n", 10, "number of events to show")
	bufferCmd.AddCommand(bufferStatusCmd, bufferGoLiveCmd, bufferExtendCmd, bufferResetCmd)
	addAPIFlags(bufferCmd)
	rootCmd.AddCommand(bufferCmd)
}
