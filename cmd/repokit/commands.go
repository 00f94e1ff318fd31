package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kbukum/repokit/repository"
	"github.com/kbukum/repokit/util"
	"github.com/kbukum/repokit/version"
)

const demoPrefix = "Repository-Demo-"

func newListCmd(opts *rootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories of the authenticated account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, p *printer) error {
				repos, err := a.svc.List(ctx)
				if err != nil {
					return err
				}
				if filter != "" {
					repos = repository.Filter(repos, filter)
				}
				return p.repos(repos)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only show names containing this substring")
	return cmd
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a repository (a demo name is generated when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := demoName()
			if len(args) == 1 {
				name = args[0]
			}
			return opts.run(cmd, func(ctx context.Context, a *app, p *printer) error {
				r, err := a.svc.Create(ctx, repository.NewPrototype(name, description))
				if err != nil {
					return err
				}
				return p.repo(r)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "repository description")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete repositories by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repos := make([]repository.Repository, 0, len(args))
			for _, name := range args {
				repos = append(repos, repository.Repository{Name: name, Owner: owner})
			}
			return opts.run(cmd, func(ctx context.Context, a *app, p *printer) error {
				if err := a.svc.DeleteAll(ctx, repos); err != nil {
					return err
				}
				return p.deleted(repos)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owning account (default: github.owner, then the authenticated user)")
	return cmd
}

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "prune [substring]",
		Short: "Delete every repository whose name contains substring (default " + demoPrefix + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			substr := demoPrefix
			if len(args) == 1 {
				substr = args[0]
			}
			return opts.run(cmd, func(ctx context.Context, a *app, p *printer) error {
				if dryRun {
					repos, err := a.svc.List(ctx)
					if err != nil {
						return err
					}
					return p.repos(repository.Filter(repos, substr))
				}
				matched, err := a.svc.Prune(ctx, substr)
				if err != nil {
					return err
				}
				return p.deleted(matched)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list what would be deleted")
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, p *printer) error {
				login, err := a.svc.CurrentUser(ctx)
				if err != nil {
					return err
				}
				return p.whoami(login, a.cfg.GitHub.BaseURL, credentialHint(a.cfg))
			})
		},
	}
}

func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the API root answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, p *printer) error {
				root, err := a.svc.Root(ctx)
				if err != nil {
					return err
				}
				return p.ping(len(root))
			})
		},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newPrinter(cmd.OutOrStdout(), opts.out).version(version.Get())
		},
	}
}

func demoName() string {
	return demoPrefix + uuid.NewString()[:5]
}

// credentialHint describes the configured credential without revealing it.
func credentialHint(cfg appConfig) string {
	gh := cfg.GitHub
	switch {
	case gh.Token != "":
		return "token " + util.MaskSecret(gh.Token, 4)
	case gh.Username != "":
		return "basic " + gh.Username
	case gh.AppID != 0:
		return fmt.Sprintf("app %d installation %d", gh.AppID, gh.InstallationID)
	}
	return "none"
}
