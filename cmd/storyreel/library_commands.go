package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storyreel/internal/library"
)

func newStoriesCommand(ctx *commandContext) *cobra.Command {
	storiesCmd := &cobra.Command{
		Use:   "stories",
		Short: "Fetch and inspect stored stories",
	}
	storiesCmd.AddCommand(newStoriesFetchCommand(ctx))
	storiesCmd.AddCommand(newStoriesListCommand(ctx))
	storiesCmd.AddCommand(newStoriesShowCommand(ctx))
	storiesCmd.AddCommand(newRecordDeleteCommand(ctx, "story", func(lib *library.Library, name string) error {
		return lib.Stories.Delete(name)
	}))
	return storiesCmd
}

func newStoriesFetchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "fetch [subreddit...]",
		Short: "Fetch new stories from subreddits (defaults to reddit.subreddits)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			subreddits := args
			if len(subreddits) == 0 {
				subreddits = cfg.Reddit.Subreddits
			}
			if len(subreddits) == 0 {
				return fmt.Errorf("no subreddits given and reddit.subreddits is empty")
			}
			lib, err := ctx.library()
			if err != nil {
				return err
			}
			fetcher, err := newStoryFetcher(cfg, lib, nil, ctx.quietLogger())
			if err != nil {
				return err
			}

			var results []any
			rows := make([][]string, 0, len(subreddits))
			var failures int
			for _, sub := range subreddits {
				sub = strings.TrimPrefix(strings.TrimSpace(sub), "r/")
				result, err := fetcher.Fetch(cmd.Context(), sub)
				if err != nil {
					failures++
					rows = append(rows, []string{sub, "-", "-", err.Error()})
					results = append(results, map[string]string{"subreddit": sub, "error": err.Error()})
					continue
				}
				rows = append(rows, []string{sub, strconv.Itoa(len(result.Saved)), strconv.Itoa(result.Skipped), strings.Join(result.Saved, ", ")})
				results = append(results, result)
			}
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Subreddit", "Saved", "Skipped", "Stories"}, rows, 1, 2))
			}
			if failures == len(subreddits) {
				return fmt.Errorf("every subreddit fetch failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func newStoriesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.library()
			if err != nil {
				return err
			}
			entries, err := lib.Stories.List()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No stories stored")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Name,
					truncate(e.Record.Title, 60),
					e.Record.Subreddit,
					strconv.Itoa(len(strings.Fields(e.Record.Content))),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Name", "Title", "Subreddit", "Words"}, rows, 3))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stories as JSON")
	return cmd
}

func newStoriesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.library()
			if err != nil {
				return err
			}
			story, err := lib.Stories.Get(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, story)
		},
	}
}

func newVideosCommand(ctx *commandContext) *cobra.Command {
	videosCmd := &cobra.Command{
		Use:   "videos",
		Short: "Inspect stored video configs",
	}
	videosCmd.AddCommand(newVideosListCommand(ctx))
	videosCmd.AddCommand(newVideosShowCommand(ctx))
	videosCmd.AddCommand(newRecordDeleteCommand(ctx, "video config", func(lib *library.Library, name string) error {
		return lib.Videos.Delete(name)
	}))
	return videosCmd
}

func newVideosListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored video configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.library()
			if err != nil {
				return err
			}
			entries, err := lib.Videos.List()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No video configs stored")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Name,
					valueOr(e.Record.BackgroundClipsFolder, "-"),
					valueOr(e.Record.VoiceName, "-"),
					valueOr(e.Record.VideoOutputPath, "-"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Name", "Background", "Voice", "Output"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print video configs as JSON")
	return cmd
}

func newVideosShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored video config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.library()
			if err != nil {
				return err
			}
			video, err := lib.Videos.Get(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, video)
		},
	}
}

func newRecordDeleteCommand(ctx *commandContext, kind string, remove func(*library.Library, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored " + kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.library()
			if err != nil {
				return err
			}
			if err := remove(lib, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, args[0])
			return nil
		},
	}
}
