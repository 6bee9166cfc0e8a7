package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show hub health and the last gesture",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Hub:\t%s\n", client.BaseURL())
		fmt.Fprintf(w, "Devices on:\t%d/%d\n", h.ActiveDevices, h.TotalDevices)
		fmt.Fprintf(w, "Gestures:\t%d\n", h.GestureCount)
		fmt.Fprintf(w, "Enabled:\t%t\n", h.Settings.Enabled)
		fmt.Fprintf(w, "Sensitivity:\t%.2f\n", h.Settings.Sensitivity)
		if g := h.LastGesture; g != nil {
			fmt.Fprintf(w, "Last gesture:\t%s (%.2f) at %s\n", g.Label, g.Confidence, g.Timestamp.Local().Format("15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
