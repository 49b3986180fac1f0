package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// APIFlags holds the daemon connection settings shared by client commands.
type APIFlags struct {
	URL     string
	Timeout time.Duration
}

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "svcwatch",
		Short:         "Service monitor with threshold-driven auto restart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	apiFlags := &APIFlags{}
	root.PersistentFlags().StringVar(&apiFlags.URL, "api-url", "http://localhost:8080/api", "daemon API base URL")
	root.PersistentFlags().DurationVar(&apiFlags.Timeout, "api-timeout", 10*time.Second, "daemon API request timeout")

	root.AddCommand(
		createServeCommand(),
		createServicesCommand(apiFlags),
		createPolicyCommand(apiFlags),
		createQueueThresholdCommand(apiFlags),
		createRestartCommand(apiFlags),
		createStopCommand(apiFlags),
		createStartCommand(apiFlags),
		createQueuesCommand(apiFlags),
		createExecutablesCommand(apiFlags),
		createFolderCommand(apiFlags),
	)
	return root
}
