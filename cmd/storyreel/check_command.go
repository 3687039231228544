package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyreel/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check external binaries, directories and service credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			fmt.Fprintln(out, "Dependencies")
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg, nil) {
				kind, detail := statusOK, status.Command
				if !status.Available {
					detail = status.Detail
					kind = statusError
					if status.Optional {
						kind = statusWarn
					} else {
						failures++
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
			}

			fmt.Fprintln(out, "Environment")
			results := preflight.RunLocal(cfg)
			if !offline {
				results = preflight.RunAll(cmd.Context(), cfg, nil)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the voice and transcription API checks")
	return cmd
}
