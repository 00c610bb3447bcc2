package command

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"pulseboard/dashboard/internal/config"
)

type Deps struct {
	LoadConfig   func() config.Config
	RunDashboard func(context.Context, config.Config) error
	RunMigrateUp func(context.Context, config.Config) error
	RunExport    func(context.Context, config.Config, string) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "pulseboard",
		Usage: "developer activity dashboard",
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(deps)
			return runDashboard(ctx.Context, deps, cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the dashboard",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps)
					return runDashboard(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "run cache database migration",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply pending migrations",
						Action: func(ctx *cli.Context) error {
							cfg := loadConfig(deps)
							return runMigrateUp(ctx.Context, deps, cfg)
						},
					},
				},
			},
			{
				Name:      "export",
				Usage:     "write a database snapshot from the companion",
				ArgsUsage: "[output path]",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps)
					return runExport(ctx.Context, deps, cfg, ctx.Args().First())
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func runDashboard(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunDashboard == nil {
		return errors.New("dashboard runner is not configured")
	}
	return deps.RunDashboard(ctx, cfg)
}

func runMigrateUp(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunMigrateUp == nil {
		return errors.New("migrate up runner is not configured")
	}
	return deps.RunMigrateUp(ctx, cfg)
}

func runExport(ctx context.Context, deps Deps, cfg config.Config, out string) error {
	if deps.RunExport == nil {
		return errors.New("export runner is not configured")
	}
	return deps.RunExport(ctx, cfg, out)
}
