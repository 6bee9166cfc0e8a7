package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update gesture settings",
	Example: `  gesturectl settings
  gesturectl settings --enabled=false
  gesturectl settings --sensitivity 0.8 --response-delay 300`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var patch registry.SettingsPatch
		changed := false

		if flags.Changed("enabled") {
			v, _ := flags.GetBool("enabled")
			patch.Enabled = &v
			changed = true
		}
		if flags.Changed("sensitivity") {
			v, _ := flags.GetFloat64("sensitivity")
			patch.Sensitivity = &v
			changed = true
		}
		if flags.Changed("detection-range") {
			v, _ := flags.GetFloat64("detection-range")
			patch.DetectionRange = &v
			changed = true
		}
		if flags.Changed("response-delay") {
			v, _ := flags.GetInt("response-delay")
			patch.ResponseDelayMs = &v
			changed = true
		}

		var (
			s   registry.Settings
			err error
		)
		if changed {
			s, err = client.UpdateSettings(cmd.Context(), patch)
		} else {
			s, err = client.GetSettings(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Printf("enabled:        %t\n", s.Enabled)
		fmt.Printf("sensitivity:    %.2f\n", s.Sensitivity)
		fmt.Printf("detectionRange: %.2f\n", s.DetectionRange)
		fmt.Printf("responseDelay:  %dms\n", s.ResponseDelayMs)
		return nil
	},
}

func init() {
	f := settingsCmd.Flags()
	f.Bool("enabled", true, "Enable or disable gesture control")
	f.Float64("sensitivity", 0, "Minimum confidence [0,1]")
	f.Float64("detection-range", 0, "Detection range [0,1]")
	f.Int("response-delay", 0, "Response delay in ms [0,5000]")
	rootCmd.AddCommand(settingsCmd)
}
