package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storyreel/internal/render"
	"storyreel/internal/services"
	"storyreel/internal/workflow"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var req workflow.Request
	var jsonOutput bool
	var seed uint64

	cmd := &cobra.Command{
		Use:   "generate [story]",
		Short: "Render one video from a stored story or inline text",
		Long: "Render one video and wait for it to finish.\n\n" +
			"Name a stored story, or pass --title and --body. --video applies a stored\n" +
			"video config; the remaining flags override single fields of it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Story = args[0]
			}
			req.Source = "cli"
			if err := req.Validate(); err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			p, err := buildPipeline(signalCtx, cfg, logger, pipelineOptions{Workers: 1, Seed: seed})
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.workflow.Run(signalCtx, req)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := writeJSON(cmd, resultView(result)); err != nil {
					return err
				}
			} else {
				printResult(cmd, result)
			}
			if result.Err != nil {
				if signalCtx.Err() != nil {
					return context.Canceled
				}
				return fmt.Errorf("render failed in %s", result.FailedIn)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Video, "video", "", "Stored video config to apply")
	cmd.Flags().StringVar(&req.Title, "title", "", "Inline title (used without a story)")
	cmd.Flags().StringVar(&req.Body, "body", "", "Inline body text (used without a story)")
	cmd.Flags().StringVar(&req.BackgroundFolder, "background", "", "Background folder name or path")
	cmd.Flags().StringVar(&req.Voice, "voice", "", "Voice name from voice.voices, or \"random\"")
	cmd.Flags().StringVarP(&req.Output, "output", "o", "", "Output file path")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Shuffle background clips from this seed to reproduce a run (0 is random)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

type resultJSON struct {
	JobID        string  `json:"job_id"`
	Title        string  `json:"title"`
	State        string  `json:"state"`
	OutputPath   string  `json:"output_path,omitempty"`
	PublishedURL string  `json:"published_url,omitempty"`
	ElapsedSecs  float64 `json:"elapsed_seconds"`
	FailedIn     string  `json:"failed_in,omitempty"`
	ErrorKind    string  `json:"error_kind,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func resultView(r render.Result) resultJSON {
	view := resultJSON{
		JobID:        r.JobID,
		Title:        r.Title,
		State:        string(r.State),
		OutputPath:   r.OutputPath,
		PublishedURL: r.PublishedURL,
		ElapsedSecs:  r.Elapsed.Seconds(),
	}
	if r.Err != nil {
		view.FailedIn = string(r.FailedIn)
		view.ErrorKind = services.Kind(r.Err)
		view.Error = r.Err.Error()
	}
	return view
}

func printResult(cmd *cobra.Command, r render.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if r.Err != nil {
		fmt.Fprintln(out, renderStatusLine("Render", statusError, fmt.Sprintf("failed in %s after %s", r.FailedIn, formatElapsed(r.Elapsed)), colorize))
		fmt.Fprintf(out, "  Job:    %s\n", r.JobID)
		fmt.Fprintf(out, "  Kind:   %s\n", services.Kind(r.Err))
		fmt.Fprintf(out, "  Error:  %v\n", r.Err)
		return
	}
	fmt.Fprintln(out, renderStatusLine("Render", statusOK, "finished in "+formatElapsed(r.Elapsed), colorize))
	fmt.Fprintf(out, "  Job:    %s\n", r.JobID)
	fmt.Fprintf(out, "  Output: %s\n", r.OutputPath)
	if r.PublishedURL != "" {
		fmt.Fprintf(out, "  URL:    %s\n", r.PublishedURL)
	}
}
