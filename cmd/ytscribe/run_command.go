package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ytscribe/internal/daemon"
	"ytscribe/internal/preflight"
	"ytscribe/internal/secrets"
	"ytscribe/internal/services/deepgram"
	"ytscribe/internal/services/ffmpeg"
	"ytscribe/internal/services/ytdlp"
	"ytscribe/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the queue until interrupted (or drained, with --once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			creds, err := ctx.credentialStore()
			if err != nil {
				return err
			}
			apiKey, err := creds.Get(secrets.KeyDeepgram)
			if err != nil {
				if errors.Is(err, secrets.ErrNotFound) {
					return errors.New("Deepgram API key not set; run 'ytscribe key set'")
				}
				return err
			}

			if results := preflight.RunAll(cfg, creds); !preflight.AllPassed(results) {
				stdout := cmd.OutOrStdout()
				for _, result := range results {
					if !result.Passed {
						fmt.Fprintf(stdout, "preflight: %s: %s\n", result.Name, result.Detail)
					}
				}
				return errors.New("preflight checks failed")
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			manager := workflow.NewManager(
				cfg,
				store,
				logger,
				ytdlp.New(cfg, logger),
				ffmpeg.New(cfg, logger),
				deepgram.New(cfg, apiKey, logger),
			)
			d, err := daemon.New(cfg, store, logger, manager)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			if once {
				return manager.RunOnce(cmd.Context())
			}

			if err := d.Start(cmd.Context()); err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-cmd.Context().Done():
			case sig := <-sigCh:
				fmt.Fprintf(cmd.OutOrStdout(), "received %s, shutting down\n", sig)
			}
			d.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Drain the queue and exit instead of polling")
	return cmd
}
