package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyreel/internal/jobs"
	"storyreel/internal/render"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect render job history",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsPruneCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var states []string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := jobs.ListFilter{Limit: limit}
			for _, raw := range states {
				state, err := parseState(raw)
				if err != nil {
					return err
				}
				filter.States = append(filter.States, state)
			}
			return ctx.withJobs(func(store *jobs.Store) error {
				records, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOutput {
					views := make([]jobJSON, 0, len(records))
					for _, r := range records {
						views = append(views, jobView(r))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, r := range records {
					rows = append(rows, []string{
						shortID(r.ID),
						truncate(r.Title, 48),
						string(r.State),
						formatElapsed(r.Elapsed),
						formatTime(r.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "State", "Elapsed", "Created"}, rows, 3))

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatStats(stats))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&states, "state", nil, "Only show jobs in these states (e.g. FAILED,CLEANED_UP)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job by id or id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(store *jobs.Store) error {
				record, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobView(record))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", record.ID)
				fmt.Fprintf(out, "Title:     %s\n", record.Title)
				fmt.Fprintf(out, "Source:    %s\n", valueOr(record.Source, "-"))
				fmt.Fprintf(out, "State:     %s\n", record.State)
				if record.FailedIn != "" {
					fmt.Fprintf(out, "Failed in: %s\n", record.FailedIn)
					fmt.Fprintf(out, "Error:     [%s] %s\n", record.ErrorKind, record.ErrorMessage)
				}
				fmt.Fprintf(out, "Output:    %s\n", valueOr(record.OutputPath, "-"))
				if record.PublishedURL != "" {
					fmt.Fprintf(out, "URL:       %s\n", record.PublishedURL)
				}
				fmt.Fprintf(out, "Elapsed:   %s\n", formatElapsed(record.Elapsed))
				fmt.Fprintf(out, "Created:   %s\n", formatTime(record.CreatedAt))
				if record.FinishedAt != nil {
					fmt.Fprintf(out, "Finished:  %s\n", formatTime(*record.FinishedAt))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job as JSON")
	return cmd
}

func newJobsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return ctx.withJobs(func(store *jobs.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d jobs\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the oldest job to keep")
	return cmd
}

type jobJSON struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Source       string     `json:"source,omitempty"`
	State        string     `json:"state"`
	FailedIn     string     `json:"failed_in,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	OutputPath   string     `json:"output_path,omitempty"`
	PublishedURL string     `json:"published_url,omitempty"`
	ElapsedSecs  float64    `json:"elapsed_seconds"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func jobView(r jobs.Record) jobJSON {
	return jobJSON{
		ID:           r.ID,
		Title:        r.Title,
		Source:       r.Source,
		State:        string(r.State),
		FailedIn:     string(r.FailedIn),
		ErrorKind:    r.ErrorKind,
		ErrorMessage: r.ErrorMessage,
		OutputPath:   r.OutputPath,
		PublishedURL: r.PublishedURL,
		ElapsedSecs:  r.Elapsed.Seconds(),
		CreatedAt:    r.CreatedAt,
		FinishedAt:   r.FinishedAt,
	}
}

func parseState(raw string) (render.State, error) {
	value := render.State(strings.ToUpper(strings.TrimSpace(raw)))
	if slices.Contains(render.States(), value) {
		return value, nil
	}
	names := make([]string, 0, len(render.States()))
	for _, s := range render.States() {
		names = append(names, string(s))
	}
	return "", fmt.Errorf("unknown state %q (valid: %s)", raw, strings.Join(names, ", "))
}

func formatStats(stats map[render.State]int) string {
	parts := make([]string, 0, len(stats))
	for _, state := range render.States() {
		if n := stats[state]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", state, n))
		}
	}
	if len(parts) == 0 {
		return "Totals: none"
	}
	return "Totals: " + strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
