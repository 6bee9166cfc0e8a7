package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-gesture-home/internal/config"
	"github.com/teslashibe/go-gesture-home/internal/httpc"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// Version is the gesturectl version.
const Version = "0.1.0"

var (
	// client is shared by subcommands, created before each run.
	client *registry.HTTPClient

	registryURL string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "gesturectl",
	Short:         "Control devices and gesture settings on a gesture hub",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if registryURL == "" {
			registryURL = config.RegistryURL(config.DefaultRegistryURL)
		}
		client = registry.NewHTTPClient(registryURL, httpc.NewClient(timeout))
		return nil
	},
}

// Execute runs the root command with a context cancelled on Ctrl+C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "Gesture hub URL (default: $REGISTRY_URL or "+config.DefaultRegistryURL+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
}
