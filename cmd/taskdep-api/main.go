// taskdep-api — HTTP API для выполнения графов задач.
//
// API:
//   - Выполняет графы синхронно (POST /api/v1/runs)
//   - Ставит графы в очередь для taskdep-worker ("async": true)
//   - Отдаёт порядок выполнения без запуска (POST /api/v1/plan)
//   - Отдаёт историю runs из PostgreSQL
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/taskdep/internal/api"
	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/repo"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
)

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger("api")
	logger.Info("starting taskdep-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
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
	logger.Info("connected to database")

	runRepo := repo.NewRunRepo(pool)

	metrics := telemetry.NewMetrics(nil)

	// exec и окружение процесса недоступны графам из сети без явного
	// TASKDEP_ALLOW_EXEC / TASKDEP_TEMPLATE_ENV
	orchCfg := orchestrator.Config{
		Store:    runRepo,
		Registry: steps.ServiceRegistryFromEnv(),
		Env:      steps.ServiceEnvFromEnv(),
		Metrics:  metrics,
		Logger:   logger,
	}
	apiCfg := api.Config{
		Runs:    runRepo,
		Metrics: metrics,
		Logger:  logger,
	}

	// RabbitMQ опционален: без него недоступны async runs и run.finished
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, async runs disabled", "error", err)
	} else {
		defer mqConn.Close()

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher := mq.NewPublisher(mqConn, logger)
		orchCfg.Publisher = publisher
		apiCfg.Queue = publisher
	}

	apiCfg.Runner = orchestrator.New(orchCfg)
	handler := api.NewHandler(apiCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
