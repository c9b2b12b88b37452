package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/genresync/internal"
	"github.com/starford/genresync/internal/syncservice"
	pkgconfig "github.com/starford/genresync/pkg/config"
)

var version = "dev"

// options loads the config named by --config and returns the base options.
// A missing config file falls back to defaults.
func options(cmd *cli.Command, extra ...internal.Option) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return append([]internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, extra...), nil
}

// patchFromFlags returns a patch holding only the folder flags that were set.
func patchFromFlags(cmd *cli.Command) syncservice.SettingsPatch {
	var p syncservice.SettingsPatch
	if cmd.IsSet("artist-folder") {
		v := cmd.String("artist-folder")
		p.ArtistFolder = &v
	}
	if cmd.IsSet("genre-folder") {
		v := cmd.String("genre-folder")
		p.GenreFolder = &v
	}
	return p
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func folderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "artist-folder",
			Usage: "Vault folder holding artist notes",
		},
		&cli.StringFlag{
			Name:  "genre-folder",
			Usage: "Vault folder where genre notes are created",
		},
	}
}

func update(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	report, err := internal.Update(ctx, patchFromFlags(cmd), opts...)
	if err != nil {
		return fmt.Errorf("update genre pages: %w", err)
	}
	return printJSON(report)
}

func settingsShow(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	s, err := internal.ShowSettings(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	return printJSON(s)
}

func settingsSet(ctx context.Context, cmd *cli.Command) error {
	patch := patchFromFlags(cmd)
	if patch.Empty() {
		return fmt.Errorf("nothing to set: pass --artist-folder and/or --genre-folder")
	}
	opts, err := options(cmd, internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	s, err := internal.SetSettings(ctx, patch, opts...)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return printJSON(s)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func watchVault(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, opts...)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "genresync",
		Usage:   "Create a note for every genre tagged on the artist notes of a Markdown vault",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "update",
				Usage:  "Update Genre Pages: create the missing genre notes",
				Flags:  folderFlags(),
				Action: update,
			},
			{
				Name:  "settings",
				Usage: "Show or change the artist and genre folders",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the persisted settings",
						Action: settingsShow,
					},
					{
						Name:   "set",
						Usage:  "Persist new folder settings",
						Flags:  folderFlags(),
						Action: settingsSet,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with server-sent events",
				Action: serve,
			},
			{
				Name:   "watch",
				Usage:  "Update genre pages whenever artist notes change",
				Action: watchVault,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server over stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
