// Package cli wires the operator commands onto cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cp1-controllers/internal/api"
	"cp1-controllers/internal/config"
	"cp1-controllers/internal/di"
	"cp1-controllers/internal/scenario"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// ContainerFactory builds the dependency container for one command.
type ContainerFactory func(ctx context.Context, cfg *config.Config) (*di.Container, error)

type runFlags struct {
	start        string
	targets      string
	obstacleAt   string
	configID     int
	charge       float64
	mode         string
	startupDelay time.Duration
	faultDelay   time.Duration
}

// NewRootCommand returns the cp1 command tree. loadConfig and newContainer are
// injectable so the commands can run against a temporary setup.
func NewRootCommand(loadConfig func() (*config.Config, error), newContainer ContainerFactory) *cobra.Command {
	flags := &runFlags{}

	root := &cobra.Command{
		Use:   "cp1",
		Short: "Mission scenarios for the CP1 mobile robot",
		Long: `Runs the CP1 baseline missions against a simulated or MQTT-connected robot,
injects and clears obstacles, and serves a small status API.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.start, "start", scenario.DefaultStart, "start waypoint")
	root.PersistentFlags().StringVar(&flags.targets, "targets", strings.Join(scenario.DefaultTargets, ","), "comma separated target waypoints")
	root.PersistentFlags().StringVar(&flags.obstacleAt, "obstacle-at", scenario.DefaultBlocked, "waypoint blocked by baseline_b")
	root.PersistentFlags().IntVar(&flags.configID, "config-id", 0, "robot configuration id (default CONFIGURATION_ID)")
	root.PersistentFlags().Float64Var(&flags.charge, "charge", 1, "initial battery charge in Ah")
	root.PersistentFlags().StringVar(&flags.mode, "mode", scenario.ModeWaypoints, "mission mode: waypoints or program")
	root.PersistentFlags().DurationVar(&flags.startupDelay, "startup-delay", 0, "wait before placing the robot (default STARTUP_DELAY_SECONDS)")
	root.PersistentFlags().DurationVar(&flags.faultDelay, "fault-delay", 0, "baseline_c fault timing (default FAULT_INJECTION_DELAY_SECONDS)")

	commands := []struct {
		name  string
		short string
	}{
		{scenario.NameBaselineA, "Run the mission without disturbances"},
		{scenario.NameBaselineB, "Block a waypoint with an obstacle, then run the mission"},
		{scenario.NameBaselineC, "Run the mission and inject an obstacle near the robot mid-run"},
		{scenario.NamePlaceObstacle, "Place obstacles at the two waypoints closest to the robot"},
		{scenario.NameRemoveObstacle, "Remove every obstacle placed so far"},
	}
	for _, sc := range commands {
		name := sc.name
		root.AddCommand(&cobra.Command{
			Use:   name,
			Short: sc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withContainer(cmd, loadConfig, newContainer, func(ctx context.Context, cfg *config.Config, c *di.Container) error {
					runner, err := c.NewRunner(flags.options(cmd, cfg))
					if err != nil {
						return err
					}
					return runner.Run(ctx, name)
				})
			},
		})
	}

	root.AddCommand(newServeCommand(loadConfig, newContainer))
	return root
}

func newServeCommand(loadConfig func() (*config.Config, error), newContainer ContainerFactory) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, loadConfig, newContainer, func(ctx context.Context, cfg *config.Config, c *di.Container) error {
				if addr == "" {
					addr = cfg.HTTPAddr
				}
				server := api.NewServer(addr, api.NewRouter(c.NewAPIHandler(), c.Logger))

				errCh := make(chan error, 1)
				go func() {
					c.Logger.Infof("🌐 Status API listening on %s", addr)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				c.Logger.Infof("🛑 Shutting down status API")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}

func withContainer(
	cmd *cobra.Command,
	loadConfig func() (*config.Config, error),
	newContainer ContainerFactory,
	fn func(ctx context.Context, cfg *config.Config, c *di.Container) error,
) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	container, err := newContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Cleanup()

	return fn(ctx, cfg, container)
}

// options merges the flags over the environment defaults.
func (f *runFlags) options(cmd *cobra.Command, cfg *config.Config) scenario.Options {
	opts := scenario.DefaultOptions()
	opts.Start = f.start
	opts.Targets = splitTargets(f.targets)
	opts.ObstacleAt = f.obstacleAt
	opts.InitialCharge = f.charge
	opts.Mode = f.mode
	opts.Source = cfg.RobotSerialNumber

	opts.ConfigurationID = cfg.ConfigurationID
	if cmd.Flags().Changed("config-id") {
		opts.ConfigurationID = f.configID
	}
	opts.StartupDelay = cfg.StartupDelay
	if cmd.Flags().Changed("startup-delay") {
		opts.StartupDelay = f.startupDelay
	}
	opts.FaultDelay = cfg.FaultInjectionDelay
	if cmd.Flags().Changed("fault-delay") {
		opts.FaultDelay = f.faultDelay
	}
	return opts
}

func splitTargets(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
