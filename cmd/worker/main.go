package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"rollcall/internal/config"
	"rollcall/internal/journal"
	"rollcall/internal/logging"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker drains call events from redis into the Postgres journal.
func main() {
	app := &cli.App{
		Name:  "rollcall-worker",
		Usage: "journal writer for call events",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "consume the journal queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "queue-key",
						Usage: "redis list to consume, overrides QUEUE_KEY",
					},
				},
				Action: func(c *cli.Context) error {
					cfg := config.Load()
					if v := c.String("queue-key"); v != "" {
						cfg.QueueKey = v
					}
					return run(c.Context, cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("worker exited")
	}
}

func run(parent context.Context, cfg config.App) error {
	logging.Setup(cfg.Production(), cfg.LogLevel)
	if cfg.QueueBackend == "memory" {
		return errors.New("QUEUE_BACKEND=memory is drained by the api process; the worker needs redis")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := journal.NewRepository(db.Client)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet, will keep polling")
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	log.Info().Str("queue", cfg.QueueKey).Msg("worker started, waiting for messages")
	stored := journal.Drain(ctx, messages, repo)
	log.Info().Int("stored", stored).Msg("worker stopped")
	return nil
}
