package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"ls"},
	Short:   "List devices and their state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := client.GetAll(cmd.Context())
		if err != nil {
			return err
		}
		printDevices(os.Stdout, devices)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func printDevices(out io.Writer, devices map[string]registry.DeviceState) {
	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tSTATUS\tUPDATED")
	fmt.Fprintln(w, "--\t----\t--------\t------\t-------")
	for _, id := range registry.SortedIDs(devices) {
		d := devices[id]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Location, d.StatusWord(), d.LastUpdated.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}
