package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytscribe/internal/secrets"
)

func newKeyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the Deepgram API key",
	}
	cmd.AddCommand(newKeySetCommand(ctx))
	cmd.AddCommand(newKeyStatusCommand(ctx))
	cmd.AddCommand(newKeyDeleteCommand(ctx))
	return cmd
}

// The key value is never echoed back by any command.
func newKeySetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set [value]",
		Short: "Store the API key (reads stdin when no value is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				fmt.Fprint(cmd.OutOrStdout(), "API key: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return errors.New("API key is empty")
			}

			creds, err := ctx.credentialStore()
			if err != nil {
				return err
			}
			if err := creds.Set(secrets.KeyDeepgram, value); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key stored")
			return nil
		},
	}
}

func newKeyStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether an API key is configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := ctx.credentialStore()
			if err != nil {
				return err
			}
			if _, err := creds.Get(secrets.KeyDeepgram); err != nil {
				if errors.Is(err, secrets.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "API key not set")
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key configured")
			return nil
		},
	}
}

func newKeyDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := ctx.credentialStore()
			if err != nil {
				return err
			}
			if err := creds.Delete(secrets.KeyDeepgram); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			return nil
		},
	}
}
