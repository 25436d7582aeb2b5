package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ytscribe/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Status", "Count"})
			t.AppendRows([]table.Row{
				{"Queued", health.Queued},
				{"Running", health.Running},
				{"Completed", health.Completed},
				{"Failed", health.Failed},
				{"Skipped", health.Skipped},
			})
			t.AppendFooter(table.Row{"Total", health.Total})
			t.Render()
			return nil
		},
	}
}

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check binaries, directories, disk space, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			creds, err := ctx.credentialStore()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cfg, creds)
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Check", "Result", "Detail"})
			for _, result := range results {
				state := "ok"
				if !result.Passed {
					state = "FAIL"
				}
				t.AppendRow(table.Row{result.Name, state, result.Detail})
			}
			t.Render()

			if !preflight.AllPassed(results) {
				return errors.New("preflight checks failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All checks passed")
			return nil
		},
	}
}
