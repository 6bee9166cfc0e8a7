package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Turn every device off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := client.ResetAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("All devices turned off")
		printDevices(os.Stdout, devices)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
