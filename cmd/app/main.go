package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/assetcook/internal"
	"github.com/starford/assetcook/internal/apperr"
	"github.com/starford/assetcook/internal/models"
	pkgconfig "github.com/starford/assetcook/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 4 {
		return fmt.Errorf("expected 4 arguments, got %d (usage: %s %s): %w",
			cmd.NArg(), cmd.Name, cmd.ArgsUsage, apperr.ErrInvalidArgs)
	}
	args := cmd.Args()

	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithTarget(models.Target{
			SourceDir:     args.Get(0),
			OutputDir:     args.Get(1),
			Platform:      args.Get(2),
			Configuration: args.Get(3),
		}),
		internal.WithForce(cmd.Bool("force")),
		internal.WithWatch(cmd.Bool("watch")),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "assetcook",
		Usage:     "Incrementally cook a source asset tree into a platform output tree",
		ArgsUsage: "<source> <output> <platform> <configuration>",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "assetcook.yaml",
				Value:       "assetcook.yaml",
				Sources:     cli.EnvVars("ASSETCOOK_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Ignore the ledger and process every file",
				Sources: cli.EnvVars("ASSETCOOK_FORCE"),
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep running and re-cook whenever the source tree changes",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
