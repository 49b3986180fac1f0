package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loykin/svcwatch"
	"github.com/loykin/svcwatch/internal/policy"
	"github.com/loykin/svcwatch/pkg/client"
)

func newClient(flags *APIFlags) *client.Client {
	return client.New(client.Config{BaseURL: flags.URL, Timeout: flags.Timeout})
}

func parsePIDArg(arg string) (int32, error) {
	pid, err := strconv.ParseInt(arg, 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", arg)
	}
	return int32(pid), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func createServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := svcwatch.DefaultConfig()
			if configPath != "" {
				var err error
				cfg, err = svcwatch.LoadConfig(configPath)
				if err != nil {
					return err
				}
			}
			cfg.Log.Setup()

			eng, closeAll, err := svcwatch.New(cfg)
			if err != nil {
				return err
			}
			defer closeAll()

			if err := svcwatch.RegisterMetrics(); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}
			var metricsSrv *http.Server
			if cfg.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", svcwatch.MetricsHandler())
				metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
				go func() { _ = metricsSrv.ListenAndServe() }()
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			eng.Start(ctx)

			apiSrv, err := svcwatch.NewHTTPServer(cfg.Listen, cfg.BasePath, eng)
			if err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			eng.Stop()
			_ = apiSrv.Close()
			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	return cmd
}

func createServicesCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "services [pid]",
		Short: "List monitored services, or show one by pid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			if len(args) == 1 {
				pid, err := parsePIDArg(args[0])
				if err != nil {
					return err
				}
				view, err := c.Service(cmd.Context(), pid)
				if err != nil {
					return err
				}
				return printJSON(view)
			}
			views, err := c.Services(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(views)
		},
	}
}

func createPolicyCommand(flags *APIFlags) *cobra.Command {
	var (
		enabled bool
		cpu     float64
		memory  float64
		queueTh int64
		remove  bool
	)
	cmd := &cobra.Command{
		Use:   "policy <pid>",
		Short: "Show or update the restart policy for a pid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePIDArg(args[0])
			if err != nil {
				return err
			}
			c := newClient(flags)
			if remove {
				return c.DeletePolicy(cmd.Context(), pid)
			}
			if !cmd.Flags().Changed("enabled") && !cmd.Flags().Changed("cpu") &&
				!cmd.Flags().Changed("memory") && !cmd.Flags().Changed("queue") {
				res, err := c.Policy(cmd.Context(), pid)
				if err != nil {
					return err
				}
				return printJSON(res)
			}
			p := policy.Default()
			p.Enabled = enabled
			if cmd.Flags().Changed("cpu") {
				p.CPUThreshold = cpu
			}
			if cmd.Flags().Changed("memory") {
				p.MemoryThresholdMB = memory
			}
			if cmd.Flags().Changed("queue") {
				p.QueueThreshold = queueTh
			}
			return c.SetPolicy(cmd.Context(), pid, p)
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", true, "arm the CPU/memory triggers")
	cmd.Flags().Float64Var(&cpu, "cpu", policy.DefaultCPUThreshold, "CPU threshold percent")
	cmd.Flags().Float64Var(&memory, "memory", policy.DefaultMemoryThresholdMB, "memory threshold in MB")
	cmd.Flags().Int64Var(&queueTh, "queue", 0, "queue depth threshold (0 disarms)")
	cmd.Flags().BoolVar(&remove, "remove", false, "delete the policy")
	return cmd
}

func createQueueThresholdCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-threshold <pid> <threshold>",
		Short: "Arm the queue depth trigger for a pid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePIDArg(args[0])
			if err != nil {
				return err
			}
			threshold, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid threshold %q", args[1])
			}
			return newClient(flags).SetQueueThreshold(cmd.Context(), pid, threshold)
		},
	}
}

func createRestartCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restart <pid>",
		Short: "Restart a service immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePIDArg(args[0])
			if err != nil {
				return err
			}
			if err := newClient(flags).Restart(cmd.Context(), pid); err != nil {
				return err
			}
			fmt.Printf("restart initiated for pid %d\n", pid)
			return nil
		},
	}
}

func createStopCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <pid>",
		Short: "Stop a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePIDArg(args[0])
			if err != nil {
				return err
			}
			return newClient(flags).Stop(cmd.Context(), pid)
		},
	}
}

func createStartCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <name>",
		Short: "Start an executable from the managed folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := newClient(flags).Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("started: %s (pid %d)\n", args[0], pid)
			return nil
		},
	}
}

func createQueuesCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List visible message queues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			queues, err := newClient(flags).Queues(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(queues)
		},
	}
}

func createExecutablesCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "executables",
		Short: "List launchable files in the managed folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			execs, err := newClient(flags).Executables(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(execs)
		},
	}
}

func createFolderCommand(flags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "folder [path]",
		Short: "Show or set the managed executables folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			if len(args) == 1 {
				return c.SetFolder(cmd.Context(), args[0])
			}
			folder, err := c.Folder(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(folder)
			return nil
		},
	}
}
