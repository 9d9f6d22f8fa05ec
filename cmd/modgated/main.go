package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "modgated",
		Usage:   "moderation gateway daemon (review queue over tracked edits)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string: sqlite:// or postgres://",
			Value:   "sqlite://data/modgated/modgate.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for the reference label cache; in-process cache when empty",
			EnvVars: []string{"MODGATE_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "webhook-url",
			Usage:   "endpoint POSTed user notifications after decisions; log-only when empty",
			EnvVars: []string{"MODGATE_WEBHOOK_URL"},
		},
		&cli.Float64Flag{
			Name:    "notify-rate-limit",
			Usage:   "max notification webhook POSTs per second",
			Value:   5,
			EnvVars: []string{"MODGATE_NOTIFY_RATE_LIMIT"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		approveAllCmd,
		rejectAllCmd,
		setPendingAllCmd,
		seedCmd,
		&cli.Command{
			Name:  "version",
			Usage: "print version",
			Action: func(cctx *cli.Context) error {
				fmt.Println(versioninfo.Short())
				return nil
			},
		},
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the review API service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the HTTP API",
			Value:   ":3883",
			EnvVars: []string{"MODGATE_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":3884",
			EnvVars: []string{"MODGATE_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		shutdownTracing, err := setupTracing("modgated")
		if err != nil {
			return err
		}
		defer shutdownTracing()

		srv, err := NewServer(cctx, logger)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("metrics listener failed", "err", err)
				os.Exit(-1)
			}
		}()

		return srv.RunAPI(cctx.String("bind"))
	},
}
