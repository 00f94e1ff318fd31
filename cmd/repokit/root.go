package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/repokit/logger"
)

type rootOptions struct {
	configFile string
	out        string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Manage the repositories of a GitHub account",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.out != "text" && opts.out != "json" {
				return fmt.Errorf("--out must be text or json (got %q)", opts.out)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: ./repokit.yml)")
	root.PersistentFlags().StringVar(&opts.out, "out", "text", "output format: text|json")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline for the command")

	root.AddCommand(
		newListCmd(opts),
		newCreateCmd(opts),
		newDeleteCmd(opts),
		newPruneCmd(opts),
		newWhoamiCmd(opts),
		newPingCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// run builds the app, hands it to fn under the command deadline, and tears
// it down afterwards.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app, p *printer) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	a, err := newApp(ctx, o.configFile)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := a.close(closeCtx); err != nil {
			a.log.Warn("shutdown incomplete", logger.MergeWithError(nil, err))
		}
	}()

	if err := fn(ctx, a, newPrinter(cmd.OutOrStdout(), o.out)); err != nil {
		a.log.Debug("command failed", logger.ErrorFields(cmd.Name(), err))
		return err
	}
	return nil
}
