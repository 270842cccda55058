package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/handler"
	"github.com/makeasinger/samples/internal/logging"
	"github.com/makeasinger/samples/internal/middleware"
	"github.com/makeasinger/samples/internal/server"
	"github.com/makeasinger/samples/internal/service"
	ws "github.com/makeasinger/samples/internal/websocket"
	"github.com/makeasinger/samples/internal/worker"
)

func serveCommand(g *globals) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest HTTP API",
		Long:  "Serve the ingest job API, job progress websockets, /health and /metrics. By default the ingest worker runs in the same process.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g.cfg, withWorker)
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "Also process ingest jobs in this process")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, withWorker bool) error {
	log := logging.Zone("samples/cli")

	app, err := Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	redisClient := newRedis(cfg)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis not available")
	}

	asynqClient := asynq.NewClient(redisOpt(cfg))
	defer asynqClient.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	jobs := service.NewIngestService(service.NewRedisJobStore(redisClient), asynqClient)

	fapp := server.NewApp(cfg, server.Deps{
		Jobs:    jobs,
		Files:   app.Pipeline,
		Hub:     hub,
		Limiter: middleware.NewRateLimiter(redisClient),
		Health: map[string]handler.Checker{
			"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"catalog": app.Catalog.Ping,
		},
		Gatherer: app.Registry,
	})

	workerErr := make(chan error, 1)
	if withWorker {
		go func() {
			workerErr <- runWorker(ctx, cfg, app, jobs, hub)
		}()
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := fapp.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.WithField("addr", addr).Info("server starting")
	if err := fapp.Listen(addr); err != nil {
		return err
	}

	if withWorker {
		select {
		case err := <-workerErr:
			return err
		case <-time.After(15 * time.Second):
			return errors.New("worker did not stop in time")
		}
	}
	return nil
}

func workerCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued ingest jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := Build(g.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			redisClient := newRedis(g.cfg)
			defer redisClient.Close()

			// Progress events have no local subscribers here; status is still persisted.
			hub := ws.NewHub()
			go hub.Run(ctx)

			jobs := service.NewIngestService(service.NewRedisJobStore(redisClient), nil)
			return runWorker(ctx, g.cfg, app, jobs, hub)
		},
	}
}

// runWorker processes ingest tasks until ctx is done
func runWorker(ctx context.Context, cfg *config.Config, app *App, jobs worker.JobTracker, hub worker.Notifier) error {
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				service.QueueIngest: 1,
			},
			Logger:   logging.Zone("samples/asynq"),
			LogLevel: asynqLogLevel(cfg.Server.LogLevel),
		},
	)

	ingestWorker := worker.NewIngestWorker(jobs, app.Pipeline, hub, worker.Options{
		Extensions: cfg.Pipeline.Extensions,
		FailureLog: cfg.Pipeline.FailureLog,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeIngest, ingestWorker.ProcessTask)

	if err := srv.Start(mux); err != nil {
		return err
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}

func newRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return asynq.DebugLevel
	case "warn", "warning":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}
