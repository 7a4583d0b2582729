package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/logutil"
	"github.com/iliyamo/task-tracker/internal/queue"
)

func consumeCmd() *cli.Command {
	return &cli.Command{
		Name:  "consume",
		Usage: "Append activity events from RabbitMQ to the activity log",
		Action: func(ctx *cli.Context) error {
			cfg := config.LoadConsumer()
			logger := logutil.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			logger.Info().Str("queue", queue.ActivityQueue).Str("dir", cfg.ActivityLogDir).Msg("consumer starting")

			err := queue.StartActivityConsumer(ctx.Context, cfg.AMQPURL, cfg.ActivityLogDir)
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("consumer stopped")
				return nil
			}
			return err
		},
	}
}
