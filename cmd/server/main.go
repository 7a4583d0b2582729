package main // Entry point package

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv" // loads a local .env before configuration is read
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("application failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "task-tracker",
		Usage: "Personal task tracker API",
		Before: func(*cli.Context) error {
			// a missing .env is normal outside local development
			_ = godotenv.Load()
			return nil
		},
		// no command given: behave like "serve"
		Action: func(c *cli.Context) error {
			return runServe(c.Context, false)
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			consumeCmd(),
		},
	}
}
