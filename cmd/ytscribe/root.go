// Command ytscribe turns YouTube videos into plain-text transcripts,
// preferring creator captions and falling back to speech-to-text.
package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
	"ytscribe/internal/queue"
	"ytscribe/internal/secrets"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) credentialStore() (secrets.Store, error) {
	dir, err := secrets.DefaultDir()
	if err != nil {
		return nil, err
	}
	return secrets.NewFileStore(dir), nil
}

func newRootCommand() *cobra.Command {
	var configPath string
	ctx := &commandContext{configFlag: &configPath}

	root := &cobra.Command{
		Use:           "ytscribe",
		Short:         "Captions-first YouTube transcript pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	root.AddCommand(newAddCommand(ctx))
	root.AddCommand(newRunCommand(ctx))
	root.AddCommand(newListCommand(ctx))
	root.AddCommand(newShowCommand(ctx))
	root.AddCommand(newRetryCommand(ctx))
	root.AddCommand(newCancelCommand(ctx))
	root.AddCommand(newRemoveCommand(ctx))
	root.AddCommand(newClearCommand(ctx))
	root.AddCommand(newStatusCommand(ctx))
	root.AddCommand(newPreflightCommand(ctx))
	root.AddCommand(newConfigCommand(ctx))
	root.AddCommand(newKeyCommand(ctx))
	return root
}

func shouldStyle(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	if shouldStyle(out) {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}
	return t
}
