// taskdep-worker — выполняет графы из очереди.
//
// Worker:
//   - Получает run.requested из RabbitMQ (очередь runs.requested)
//   - Выполняет граф через Orchestrator (post-order DFS)
//   - Сохраняет run в PostgreSQL и публикует run.finished
//
// Workers масштабируются горизонтально: каждый run выполняется
// собственным Engine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/repo"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
	"github.com/shaiso/taskdep/internal/worker"
)

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger("worker")
	logger.Info("starting taskdep-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.Open(ctx, repo.PoolConfigFromEnv())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// RabbitMQ обязателен: без очереди worker'у нечего делать
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	orch := orchestrator.New(orchestrator.Config{
		Store:     repo.NewRunRepo(pool),
		Publisher: mq.NewPublisher(mqConn, logger),
		Registry:  steps.ServiceRegistryFromEnv(),
		Env:       steps.ServiceEnvFromEnv(),
		Metrics:   telemetry.NewMetrics(nil),
		Logger:    logger,
	})

	prefetch := 0
	if v := os.Getenv("WORKER_PREFETCH"); v != "" {
		if prefetch, err = strconv.Atoi(v); err != nil {
			logger.Error("invalid WORKER_PREFETCH", "value", v, "error", err)
			os.Exit(1)
		}
	}

	wrk := worker.New(worker.Config{
		Runner:   orch,
		Conn:     mqConn,
		Prefetch: prefetch,
		Logger:   logger,
	})

	if err := wrk.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "rabbitmq disconnected")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	server := &http.Server{Addr: port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("listening", "addr", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	wrk.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	logger.Info("taskdep-worker stopped")
}
