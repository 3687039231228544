package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storyreel/internal/backgrounds"
)

func newBackgroundsCommand(ctx *commandContext) *cobra.Command {
	bgCmd := &cobra.Command{
		Use:   "backgrounds",
		Short: "Manage the background clip library",
	}
	bgCmd.AddCommand(newBackgroundsListCommand(ctx))
	bgCmd.AddCommand(newBackgroundsImportCommand(ctx))
	bgCmd.AddCommand(newBackgroundsSplitCommand(ctx))
	return bgCmd
}

func newBackgroundsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List background folders and their clip counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			folders, err := newBackgroundLibrary(cfg, ctx.quietLogger()).Folders()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, folders)
			}
			out := cmd.OutOrStdout()
			if len(folders) == 0 {
				fmt.Fprintf(out, "No background folders under %s\n", cfg.Paths.BackgroundDir)
				return nil
			}
			rows := make([][]string, 0, len(folders))
			for _, f := range folders {
				rows = append(rows, []string{f.Name, strconv.Itoa(f.Clips), f.Path})
			}
			fmt.Fprintln(out, renderTable([]string{"Folder", "Clips", "Path"}, rows, 1))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print folders as JSON")
	return cmd
}

func newBackgroundsImportCommand(ctx *commandContext) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Download a video with yt-dlp and split it into clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result, err := newBackgroundLibrary(cfg, logger).Import(cmd.Context(), args[0], folder)
			if err != nil {
				return err
			}
			printImport(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Destination folder name")
	_ = cmd.MarkFlagRequired("folder")
	return cmd
}

func newBackgroundsSplitCommand(ctx *commandContext) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "split <video>",
		Short: "Split a local video into fixed-length clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if folder == "" {
				folder = backgrounds.ClipPrefix(args[0])
			}
			result, err := newBackgroundLibrary(cfg, logger).Split(cmd.Context(), args[0], folder)
			if err != nil {
				return err
			}
			printImport(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Destination folder name (defaults to the file name)")
	return cmd
}

func printImport(cmd *cobra.Command, result backgrounds.ImportResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d clips to %s\n", len(result.Clips), result.Folder)
}
