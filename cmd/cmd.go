// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/tunemap/internal/models"
	"github.com/urfave/cli/v3"
)

func outputFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: pretty,
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		value := defaultConfigPath
		if r.configPath != "" {
			value = r.configPath
		}
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   value,
		}
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a default config.toml",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the backend session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the backend session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser and wait for the callback",
				Action: r.AuthLogin,
			},
			{
				Name:  "exchange",
				Usage: "Exchange an authorization code for a session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "code",
						Usage:    "Authorization code from the provider redirect",
						Required: true,
					},
				},
				Action: r.AuthExchange,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and session expiry",
				Flags:  outputFlags(false),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Renew the access token with the stored refresh token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Clear every stored token",
				Action: r.AuthLogout,
			},
		},
	}
}

// libraryCommand reads the signed-in user's library
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse playlists, top tracks and recommendations",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List playlists",
				Flags: append(outputFlags(false), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of playlists to print (0 for all)",
				}),
				Action: r.LibraryPlaylists,
			},
			{
				Name:  "top-tracks",
				Usage: "List top tracks for a time range",
				Flags: append(outputFlags(false), &cli.StringFlag{
					Name:    "range",
					Aliases: []string{"r"},
					Usage:   "short_term, medium_term or long_term",
					Value:   string(models.MediumTerm),
				}),
				Action: r.LibraryTopTracks,
			},
			{
				Name:  "tracks",
				Usage: "List the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags:  outputFlags(false),
				Action: r.LibraryTracks,
			},
			{
				Name:  "recommend",
				Usage: "Fetch recommendations for seed tracks, artists or genres",
				Flags: append(outputFlags(false),
					&cli.StringSliceFlag{Name: "track", Usage: "Seed track ID (repeatable)"},
					&cli.StringSliceFlag{Name: "artist", Usage: "Seed artist ID (repeatable)"},
					&cli.StringSliceFlag{Name: "genre", Usage: "Seed genre (repeatable)"},
					&cli.IntFlag{Name: "limit", Usage: "Number of recommendations (default from config)"},
					&cli.StringFlag{Name: "market", Usage: "Market code (default from config)"},
				),
				Action: r.LibraryRecommend,
			},
		},
	}
}

// mapCommand builds and inspects recommendation maps
func mapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Build and inspect recommendation maps",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build the map for a playlist and export it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "json, csv, md, txt, dot, png or html",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (or directory with --all)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Build a map for every playlist",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent workers with --all",
						Value: 3,
					},
					&cli.IntFlag{Name: "width", Usage: "Image width for png"},
					&cli.IntFlag{Name: "height", Usage: "Image height for png"},
				},
				Action: r.MapBuild,
			},
			{
				Name:  "hit",
				Usage: "Resolve a pixel of a rendered map to its song",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags: append(outputFlags(false),
					&cli.IntFlag{Name: "x", Usage: "Pixel column", Required: true},
					&cli.IntFlag{Name: "y", Usage: "Pixel row", Required: true},
					&cli.IntFlag{Name: "width", Usage: "Image width the pixel refers to"},
					&cli.IntFlag{Name: "height", Usage: "Image height the pixel refers to"},
				),
				Action: r.MapHit,
			},
		},
	}
}

// serveCommand runs the local web server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the callback, dashboard and map pages",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the landing page in a browser",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}
