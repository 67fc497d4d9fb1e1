package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"rollcall/internal/apiclient"
	"rollcall/internal/config"
	"rollcall/internal/httpapi"
	"rollcall/internal/journal"
	"rollcall/internal/logging"
	"rollcall/internal/model"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "rollcall-api",
		Usage: "attendance gateway in front of the transport API",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the HTTP gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "listen port, overrides HTTP_PORT",
					},
					&cli.StringFlag{
						Name:  "api-base-url",
						Usage: "transport API base URL, overrides API_BASE_URL",
					},
				},
				Action: func(c *cli.Context) error {
					cfg := config.Load()
					if v := c.String("port"); v != "" {
						cfg.HTTPPort = v
					}
					if v := c.String("api-base-url"); v != "" {
						cfg.APIBaseURL = v
					}
					return runHTTP(c.Context, cfg)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("api exited")
	}
}

func runHTTP(ctx context.Context, cfg config.App) error {
	logging.Setup(cfg.Production(), cfg.LogLevel)
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	loc := cfg.Location()
	model.NaiveLocation = loc

	health := map[string]func(context.Context) bool{}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(256)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
		health["redis"] = redisClient.Healthy
	}

	var (
		entries  httpapi.JournalLister
		draining bool
	)
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("journal database not reachable, /v1/journal disabled")
	} else {
		repo := journal.NewRepository(db.Client)
		entries = repo
		health["db"] = db.Healthy

		// Without redis there is no worker to hand entries to; drain in-process.
		if cfg.QueueBackend == "memory" {
			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}
			drainCtx, stopDrain := context.WithCancel(ctx)
			defer stopDrain()
			messages, err := q.Consume(drainCtx)
			if err != nil {
				return err
			}
			go journal.Drain(drainCtx, messages, repo)
			draining = true
		}
	}
	defer db.Close()

	router := httpapi.NewRouter(httpapi.Deps{
		API:             apiclient.New(cfg.APIBaseURL, cfg.APITimeout),
		Journal:         recorderFor(cfg.QueueBackend, q, draining),
		Entries:         entries,
		Health:          health,
		Issuer:          cfg.JWTIssuer,
		SigningKey:      cfg.JWTSigningKey,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Fanout:          cfg.FanoutLimit,
		Location:        loc,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("api", cfg.APIBaseURL).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}

// recorderFor returns the recorder the controllers publish through. An
// in-memory queue with no drain would fill up and stall every publish, so
// journaling is off in that case.
func recorderFor(backend string, q queue.Queue, draining bool) *journal.Recorder {
	if backend == "memory" && !draining {
		log.Warn().Msg("in-memory queue has no journal database to drain into, journaling disabled")
		return nil
	}
	return journal.NewRecorder(q)
}
