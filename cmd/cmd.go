// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/fintx/internal/api"
	"github.com/desertthunder/fintx/internal/formatter"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/services"
	"github.com/desertthunder/fintx/internal/ui"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// seedCommand writes the demo data into local storage.
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed local storage with demo transactions, categories, budgets and plans",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Overwrite collections that already exist",
			},
		},
		Action: r.Seed,
	}
}

// serveCommand runs the mock REST backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve local storage over the finance REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default from config)",
			},
			&cli.BoolFlag{
				Name:  "seed",
				Usage: "Seed missing collections before serving",
				Value: true,
			},
		},
		Action: r.Serve,
	}
}

// tokenCommand signs a bearer token accepted by the mock backend.
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token signed with the server secret",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "subject",
				Usage: "Token subject",
				Value: "fintx",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: 24 * time.Hour,
			},
		},
		Action: r.Token,
	}
}

// endpointsCommand lists every registered endpoint.
func endpointsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "endpoints",
		Usage: "List the registered API endpoints",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Endpoints,
	}
}

func transactionsCommand(r *Runner) *cli.Command {
	cmd := entityCommand(r, entityCommandOpts[models.Transaction]{
		Name:     services.Transactions,
		Aliases:  []string{"tx", "txn"},
		Singular: "transaction",
		CRUD:     func(f *services.FinanceAPI) *api.CRUD[models.Transaction] { return f.Transactions },
		Render:   ui.Transactions,
	})

	cmd.Commands = append(cmd.Commands,
		&cli.Command{
			Name:      "approve",
			Usage:     "Approve a pending transaction",
			Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "reason", Usage: "Reason recorded with the decision"},
				&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			},
			Action: r.ApproveTransaction,
		},
		&cli.Command{
			Name:      "reject",
			Usage:     "Reject a pending transaction",
			Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "reason", Usage: "Reason recorded with the decision"},
				&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			},
			Action: r.RejectTransaction,
		},
		&cli.Command{
			Name:  "summary",
			Usage: "Show income, expense and net totals",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "from", Usage: "Start date (YYYY-MM-DD)"},
				&cli.StringFlag{Name: "to", Usage: "End date (YYYY-MM-DD)"},
				&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			},
			Action: r.TransactionSummary,
		},
		&cli.Command{
			Name:  "export",
			Usage: "Export every transaction to files",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Usage:   "Export format, repeatable (csv, markdown, txt, json)",
					Value:   formatter.Formats,
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Output directory (default: fintx_export_{epoch})",
				},
				&cli.StringFlag{Name: "name", Usage: "Export name used in file names", Value: "transactions"},
				&cli.IntFlag{Name: "page-size", Usage: "Records per page", Value: 50},
				&cli.IntFlag{Name: "workers", Usage: "Concurrent page fetches (max 10)", Value: 4},
				&cli.StringFlag{Name: "search", Usage: "Full-text search"},
				&cli.StringSliceFlag{Name: "filter", Usage: "Exact-match filter as field=value, repeatable"},
				&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress progress output"},
			},
			Action: r.ExportTransactions,
		},
	)
	return cmd
}

func categoriesCommand(r *Runner) *cli.Command {
	return entityCommand(r, entityCommandOpts[models.Category]{
		Name:     services.Categories,
		Aliases:  []string{"cat"},
		Singular: "category",
		CRUD:     func(f *services.FinanceAPI) *api.CRUD[models.Category] { return f.Categories },
		Render:   ui.Categories,
	})
}

func budgetsCommand(r *Runner) *cli.Command {
	return entityCommand(r, entityCommandOpts[models.Budget]{
		Name:     services.Budgets,
		Singular: "budget",
		CRUD:     func(f *services.FinanceAPI) *api.CRUD[models.Budget] { return f.Budgets },
		Render:   ui.Budgets,
	})
}

func plansCommand(r *Runner) *cli.Command {
	return entityCommand(r, entityCommandOpts[models.Plan]{
		Name:     services.Plans,
		Singular: "plan",
		CRUD:     func(f *services.FinanceAPI) *api.CRUD[models.Plan] { return f.Plans },
		Render:   ui.Plans,
	})
}

// entityCommandOpts describes one entity command group.
type entityCommandOpts[T models.Entity] struct {
	Name     string
	Aliases  []string
	Singular string
	CRUD     func(*services.FinanceAPI) *api.CRUD[T]
	Render   func(*models.Page[T]) string
}

// entityCommand builds the list, get, create, update and delete subcommands for an entity.
func entityCommand[T models.Entity](r *Runner, o entityCommandOpts[T]) *cli.Command {
	idArg := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "id"}} }
	dataFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "JSON body to send", Required: true}
	}
	jsonFlag := func() cli.Flag { return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"} }

	return &cli.Command{
		Name:    o.Name,
		Aliases: o.Aliases,
		Usage:   "Manage " + o.Name,
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List " + o.Name,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Page number (1-based)"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Records per page"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Full-text search"},
					&cli.StringSliceFlag{Name: "sort", Usage: "Sort field, -field for descending, repeatable"},
					&cli.StringSliceFlag{Name: "filter", Usage: "Exact-match filter as field=value, repeatable"},
					jsonFlag(),
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true},
					&cli.BoolFlag{Name: "stats", Usage: "Print query cache counters after the listing"},
				},
				Action: listAction(r, o),
			},
			{
				Name:      "get",
				Usage:     "Show one " + o.Singular,
				Arguments: idArg(),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    getAction(r, o),
			},
			{
				Name:   "create",
				Usage:  "Create a " + o.Singular + " from JSON",
				Flags:  []cli.Flag{dataFlag()},
				Action: createAction(r, o),
			},
			{
				Name:      "update",
				Usage:     "Replace a " + o.Singular + " with JSON",
				Arguments: idArg(),
				Flags:     []cli.Flag{dataFlag()},
				Action:    updateAction(r, o),
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a " + o.Singular,
				Arguments: idArg(),
				Action:    deleteAction(r, o),
			},
		},
	}
}
