package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

var (
	simFingers int
	simGesture string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send a simulated gesture to the hub",
	Example: `  gesturectl simulate --fingers 2
  gesturectl simulate --gesture wave_left`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simFingers == 0 && simGesture == "" {
			return errors.New("one of --fingers or --gesture is required")
		}

		req := registry.ProcessRequest{GestureType: simGesture}
		if simFingers != 0 {
			n := simFingers
			req.FingerCount = &n
		}

		res, err := client.Simulate(cmd.Context(), req)
		if err != nil {
			return err
		}

		msg := res.VoiceMessage
		if msg == "" {
			msg = res.Message
		}
		fmt.Println(msg)
		if len(res.Suggestions) > 0 {
			fmt.Println("Try:", strings.Join(res.Suggestions, ", "))
		}
		if len(res.Devices) > 0 {
			printDevices(os.Stdout, res.Devices)
		}
		if !res.Success {
			return errors.New(res.Message)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simFingers, "fingers", "f", 0, "Finger count (1-4)")
	simulateCmd.Flags().StringVarP(&simGesture, "gesture", "g", "", "Named gesture (wave_right/all_on, wave_left/all_off, fist/emergency)")
	rootCmd.AddCommand(simulateCmd)
}
