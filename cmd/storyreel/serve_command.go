package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/api"
	"storyreel/internal/daemon"
	"storyreel/internal/deps"
	"storyreel/internal/intake"
	"storyreel/internal/logging"
	"storyreel/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var noAPI bool
	var noPoll bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the render queue, HTTP API, story poller and intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := logging.FilePath(cfg)
			if logPath != "" {
				if _, err := logging.RotateLog(logPath, time.Now()); err != nil {
					return err
				}
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logging.PruneRotatedLogs(logger, logPath, cfg.Logging.RetentionDays, time.Now())

			if !skipChecks {
				if missing := deps.Missing(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
					return fmt.Errorf("missing required binary %s (%s); run `storyreel check`", missing[0].Name, missing[0].Detail)
				}
				for _, failed := range preflight.Failed(preflight.RunAll(cmd.Context(), cfg, nil)) {
					logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", failed.Name),
						logging.String("detail", failed.Detail),
						logging.String(logging.FieldImpact, "jobs that need this resource will fail"),
					)
				}
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			p, err := buildPipeline(signalCtx, cfg, logger, pipelineOptions{Workers: workers})
			if err != nil {
				return err
			}
			defer p.Close()

			fetcher, err := newStoryFetcher(cfg, p.library, p.notifier, logger)
			if err != nil {
				return err
			}
			parts := daemon.Components{
				Workflow:      p.workflow,
				Jobs:          p.jobs,
				Sweep:         p.sweep,
				SweepInterval: sweepInterval(cfg.Render.QuarantineGraceMinutes),
			}
			if !noPoll {
				parts.Poller = fetcher
			}
			if !noAPI {
				router := api.NewRouter(api.Dependencies{
					Library:     p.library,
					Workflow:    p.workflow,
					Jobs:        p.jobs,
					Fetcher:     fetcher,
					Backgrounds: newBackgroundLibrary(cfg, logger),
					OutputDir:   cfg.Paths.OutputDir,
					LogPath:     logPath,
					Token:       cfg.Paths.APIToken,
					Logger:      logger,
				})
				if server := api.NewServer(cfg.Paths.APIBind, router, logger); server != nil {
					parts.Server = server
				}
			}
			if cfg.Intake.Enabled {
				consumer, err := intake.NewConsumer(cfg.Intake, intake.NewHandler(p.workflow, logger), logger)
				if err != nil {
					return err
				}
				parts.Intake = consumer
			}

			d, err := daemon.New(cfg, parts, logger)
			if err != nil {
				return err
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			defer d.Stop()

			status := d.Status()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "storyreel serving (workers=%d, api=%s, polling=%s, intake=%s)\n",
				workers, valueOr(status.APIAddress, "off"), yesNo(status.Polling), yesNo(status.Intake))

			<-signalCtx.Done()
			logger.Info("storyreel server shutting down")
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "jobs", 1, "Number of videos rendered at once")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Do not start the HTTP API")
	cmd.Flags().BoolVar(&noPoll, "no-poll", false, "Do not poll subreddits even when reddit.poll_interval_seconds is set")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Start without dependency and preflight checks")
	return cmd
}

// sweepInterval runs the quarantine sweep at the grace period, at most every
// minute and at least every hour.
func sweepInterval(graceMinutes int) time.Duration {
	if graceMinutes <= 0 {
		return 0
	}
	interval := time.Duration(graceMinutes) * time.Minute
	return min(max(interval, time.Minute), time.Hour)
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
