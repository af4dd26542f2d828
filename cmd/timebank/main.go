// Command timebank is the admin CLI: it serves the API, prints the roster
// and the accountant timesheet, resets the manager PIN and loads demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/nobel/timebank/api"
	"github.com/nobel/timebank/app"
	"github.com/nobel/timebank/config"
	"github.com/nobel/timebank/report"
	"github.com/nobel/timebank/timebank"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "timebank",
		Usage: "time-bank accrual engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
				EnvVars: []string{"TIMEBANK_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			balancesCommand,
			timesheetCommand,
			setPINCommand,
			seedCommand,
		},
	}
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP server",
	Action: func(c *cli.Context) error {
		return withApp(c, func(ctx context.Context, a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

var balancesCommand = &cli.Command{
	Name:  "balances",
	Usage: "print every employee's cumulative balance",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "csv", Usage: "render as CSV"},
	},
	Action: func(c *cli.Context) error {
		return withApp(c, func(ctx context.Context, a *app.App) error {
			snap, err := a.Service.Snapshot(ctx)
			if err != nil {
				return err
			}
			rows := report.Roster(snap, a.Service.Now().In(a.Service.Location))
			return report.WriteRoster(c.App.Writer, rows, formatFlag(c))
		})
	},
}

var timesheetCommand = &cli.Command{
	Name:  "timesheet",
	Usage: "print the accountant timesheet",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "first day, YYYY-MM-DD"},
		&cli.StringFlag{Name: "to", Usage: "last day, YYYY-MM-DD"},
		&cli.StringFlag{Name: "employee", Usage: "employee id"},
		&cli.BoolFlag{Name: "csv", Usage: "render as CSV"},
	},
	Action: func(c *cli.Context) error {
		var f report.TimesheetFilter
		var err error
		if s := c.String("from"); s != "" {
			if f.From, err = timebank.ParseDate(s); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
		}
		if s := c.String("to"); s != "" {
			if f.To, err = timebank.ParseDate(s); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
		}
		f.EmployeeID = timebank.EmployeeID(c.String("employee"))

		return withApp(c, func(ctx context.Context, a *app.App) error {
			snap, err := a.Service.Snapshot(ctx)
			if err != nil {
				return err
			}
			rows := report.Timesheet(snap, f, a.Service.Location)
			return report.WriteTimesheet(c.App.Writer, rows, formatFlag(c))
		})
	},
}

var setPINCommand = &cli.Command{
	Name:  "set-pin",
	Usage: "replace the manager PIN",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "pin", Usage: "new 4-digit PIN", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withApp(c, func(ctx context.Context, a *app.App) error {
			if err := a.Gate.SetPIN(ctx, c.String("pin")); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "manager PIN updated")
			return nil
		})
	},
}

var seedCommand = &cli.Command{
	Name:      "seed",
	Usage:     "load a demo scenario",
	ArgsUsage: "<scenario>",
	Action: func(c *cli.Context) error {
		id := c.Args().First()
		if id == "" {
			for _, s := range api.Scenarios {
				fmt.Fprintf(c.App.Writer, "%-15s %s\n", s.ID, s.Description)
			}
			return nil
		}
		return withApp(c, func(ctx context.Context, a *app.App) error {
			if err := api.LoadScenario(ctx, a.Service, id); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "scenario %s loaded\n", id)
			return nil
		})
	},
}

func formatFlag(c *cli.Context) report.Format {
	if c.Bool("csv") {
		return report.FormatCSV
	}
	return report.FormatText
}
