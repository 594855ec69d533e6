// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the local database",
		Action: r.Setup,
	}
}

// sessionCommands handles sign-in state.
func sessionCommands(r *Runner) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "login",
			Usage: "Sign in with email and password",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "email",
					Aliases:  []string{"e"},
					Usage:    "Account email",
					Required: true,
				},
				&cli.StringFlag{
					Name:    "password",
					Aliases: []string{"p"},
					Usage:   "Account password (read from stdin when omitted)",
					Sources: cli.EnvVars("SHELF_PASSWORD"),
				},
			},
			Action: r.Login,
		},
		{
			Name:   "logout",
			Usage:  "Forget the stored session token",
			Action: r.Logout,
		},
		{
			Name:   "status",
			Usage:  "Show the API origin and sign-in state",
			Flags:  jsonFlags(),
			Action: r.Status,
		},
	}
}

// catalogCommand handles public catalog reads.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Browse the public catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every book in the catalog",
				Flags:  jsonFlags(),
				Action: r.CatalogList,
			},
			{
				Name:  "show",
				Usage: "Show one book, including your library status when signed in",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags:  jsonFlags(),
				Action: r.CatalogShow,
			},
		},
	}
}

// bookCommand handles writes against a catalog book.
func bookCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Act on a catalog book",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a book to your library as \"to-read\"",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.BookAdd,
			},
		},
	}
}

// libraryCommand handles the signed-in user's library.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage your library (requires login)",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the books in your library",
				Flags:  jsonFlags(),
				Action: r.LibraryList,
			},
			{
				Name:  "remove",
				Usage: "Remove a library entry by entry id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.LibraryRemove,
			},
			{
				Name:  "export",
				Usage: "Export your library to JSON, CSV, Markdown or text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, markdown, txt (default from config)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or directory for markdown",
					},
					&cli.BoolFlag{
						Name:  "details",
						Usage: "Fetch each book's detail to include notes, ISBN and description",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images (markdown only)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent detail fetchers (1-10)",
						Value: 3,
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// tuiCommand launches the interactive terminal UI.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}
