package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

var (
	toggleOn  bool
	toggleOff bool
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <device-id>",
	Short: "Toggle a device, or force it with --on/--off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if toggleOn && toggleOff {
			return errors.New("--on and --off are mutually exclusive")
		}
		var desired *bool
		switch {
		case toggleOn:
			v := true
			desired = &v
		case toggleOff:
			v := false
			desired = &v
		}

		d, err := client.ToggleDevice(cmd.Context(), args[0], desired, gesture.Event{})
		if err != nil {
			return err
		}
		fmt.Printf("%s turned %s\n", d.Name, d.StatusWord())
		return nil
	},
}

func init() {
	toggleCmd.Flags().BoolVar(&toggleOn, "on", false, "Turn the device on")
	toggleCmd.Flags().BoolVar(&toggleOff, "off", false, "Turn the device off")
	rootCmd.AddCommand(toggleCmd)
}
