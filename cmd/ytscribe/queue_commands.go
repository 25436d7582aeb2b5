package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ytscribe/internal/identity"
	"ytscribe/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "add [url|video-id]...",
		Short: "Add videos to the transcription queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			references := args
			if fromFile != "" {
				fromList, err := identity.ResolveFile(fromFile)
				if err != nil {
					return err
				}
				references = append(references, fromList...)
			}
			if len(references) == 0 {
				return errors.New("provide at least one URL, video id, or --file")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stdout := cmd.OutOrStdout()
			var failed int
			for _, ref := range references {
				videoID, err := identity.Resolve(ref)
				if err != nil {
					failed++
					fmt.Fprintf(stdout, "skipped %q: not a recognized YouTube URL or video id\n", ref)
					continue
				}
				job, err := store.Enqueue(cmd.Context(), videoID, ref)
				if err != nil {
					return err
				}
				switch job.Status {
				case queue.StatusSkipped:
					fmt.Fprintf(stdout, "%s already transcribed, skipping\n", videoID)
				case queue.StatusQueued:
					fmt.Fprintf(stdout, "%s queued\n", videoID)
				default:
					fmt.Fprintf(stdout, "%s already in queue (%s)\n", videoID, job.Status)
				}
			}
			if failed == len(references) {
				return errors.New("no valid video references")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read URLs from a .txt or .csv file")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if statusFilter != "" {
				status, ok := queue.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				statuses = append(statuses, status)
			}
			jobs, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}

			t := newTable(stdout)
			t.AppendHeader(table.Row{"Video ID", "Status", "Stage", "Progress", "Attempts", "Title"})
			for _, job := range jobs {
				t.AppendRow(table.Row{
					job.VideoID,
					job.Status,
					job.Stage,
					fmt.Sprintf("%.0f%%", job.ProgressPercent),
					job.AttemptCount,
					truncateTitle(job.Title, 48),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (queued, running, completed, failed, skipped)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job for video %s", args[0])
			}

			stdout := cmd.OutOrStdout()
			t := newTable(stdout)
			t.AppendRows([]table.Row{
				{"Video ID", job.VideoID},
				{"Title", job.Title},
				{"URL", job.SourceURL},
				{"Status", job.Status},
				{"Stage", job.Stage},
				{"Progress", fmt.Sprintf("%.0f%%", job.ProgressPercent)},
				{"Attempts", job.AttemptCount},
				{"Source", job.Source},
				{"Output", job.OutputPath},
				{"Created", job.CreatedAt.Local().Format(time.RFC1123)},
				{"Updated", job.UpdatedAt.Local().Format(time.RFC1123)},
			})
			if job.LastError != "" {
				t.AppendRow(table.Row{"Last error", job.LastError})
			}
			t.Render()

			chunks, err := store.Chunks(cmd.Context(), job.VideoID)
			if err != nil {
				return err
			}
			if len(chunks) > 0 {
				fmt.Fprintln(stdout)
				ct := newTable(stdout)
				ct.AppendHeader(table.Row{"Chunk", "Start", "End", "State", "Error"})
				for _, chunk := range chunks {
					ct.AppendRow(table.Row{
						chunk.Index,
						formatSeconds(chunk.StartSec),
						formatSeconds(chunk.EndSec),
						chunk.State,
						chunk.Error,
					})
				}
				ct.Render()
			}
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [video-id]...",
		Short: "Requeue failed jobs (all failed jobs when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.RetryFailed(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", count)
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <video-id>",
		Short: "Request cancellation of a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ok, err := store.RequestCancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %s is not queued or running", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for %s\n", args[0])
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <video-id>",
		Short: "Remove a job and its chunk records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no job for video %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly, failedOnly bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return errors.New("--completed and --failed are mutually exclusive")
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var count int64
			switch {
			case completedOnly:
				count, err = store.ClearCompleted(cmd.Context())
			case failedOnly:
				count, err = store.ClearFailed(cmd.Context())
			default:
				count, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only clear completed jobs")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only clear failed jobs")
	return cmd
}

func truncateTitle(title string, limit int) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit-1]) + "…"
}

func formatSeconds(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	return d.String()
}
