package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ytscribe/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	cmd.AddCommand(newConfigPathCommand())
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented sample config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Setting", "Value"})
			t.AppendRows([]table.Row{
				{"paths.output_dir", cfg.Paths.OutputDir},
				{"paths.staging_dir", cfg.Paths.StagingDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"cookies.mode", cfg.Cookies.Mode},
				{"chunking.threshold_hours", cfg.Chunking.ThresholdHours},
				{"chunking.base_chunk_seconds", cfg.Chunking.BaseChunkSeconds},
				{"chunking.overlap_seconds", cfg.Chunking.OverlapSeconds},
				{"chunking.min_chunk_seconds", cfg.Chunking.MinChunkSeconds},
				{"audio.preferred_bitrate_kbps", cfg.Audio.PreferredBitrateKbps},
				{"audio.min_bitrate_kbps", cfg.Audio.MinBitrateKbps},
				{"audio.max_bitrate_kbps", cfg.Audio.MaxBitrateKbps},
				{"deepgram.base_url", cfg.Deepgram.BaseURL},
				{"deepgram.model", cfg.Deepgram.Model},
				{"deepgram.language", cfg.Deepgram.Language},
				{"workflow.queue_poll_interval", cfg.Workflow.QueuePollInterval},
				{"workflow.max_stage_attempts", cfg.Workflow.MaxStageAttempts},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			})
			t.Render()
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
