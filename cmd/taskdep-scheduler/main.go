// taskdep-scheduler — запускает графы по расписанию.
//
// Расписания читаются из SCHEDULES_FILE, их состояние (next_due_at,
// последний run) хранится в таблице schedules. Тик — SCHEDULER_TICK
// (default: 1s). При нескольких репликах тики выполняет только лидер
// (pg_try_advisory_lock), при получении лидерства состояние перечитывается.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/repo"
	"github.com/shaiso/taskdep/internal/scheduler"
	"github.com/shaiso/taskdep/internal/steps"
	"github.com/shaiso/taskdep/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger("scheduler")
	logger.Info("starting taskdep-scheduler")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	schedulesFile := "schedules.yaml"
	if v := os.Getenv("SCHEDULES_FILE"); v != "" {
		schedulesFile = v
	}

	tick := time.Second
	if v := os.Getenv("SCHEDULER_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Error("invalid SCHEDULER_TICK", "value", v, "error", err)
			os.Exit(1)
		}
		tick = d
	}

	schedules, err := scheduler.LoadSchedules(schedulesFile)
	if err != nil {
		logger.Error("failed to load schedules", "file", schedulesFile, "error", err)
		os.Exit(1)
	}
	logger.Info("schedules loaded", "file", schedulesFile, "count", len(schedules))

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
	logger.Info("db connected")

	orchCfg := orchestrator.Config{
		Store:    repo.NewRunRepo(pool),
		Registry: steps.ServiceRegistryFromEnv(),
		Env:      steps.ServiceEnvFromEnv(),
		Metrics:  telemetry.NewMetrics(nil),
		Logger:   logger,
	}

	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, run.finished events disabled", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		orchCfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(scheduler.Config{
		Runner:    orchestrator.New(orchCfg),
		Store:     repo.NewScheduleRepo(pool),
		Schedules: schedules,
		Logger:    logger,
	})

	go loop(ctx, pool, sched, tick)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %d schedules", len(schedules))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHEDULER_PORT"); v != "" {
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	logger.Info("taskdep-scheduler stopped")
}

// loop вызывает Tick каждые tick, пока процесс держит advisory lock.
// Lock сессионный, поэтому удерживается на отдельном соединении из pool.
func loop(ctx context.Context, pool *pgxpool.Pool, sched *scheduler.Scheduler, tick time.Duration) {
	logger := telemetry.FromContext(ctx)

	tk := time.NewTicker(tick)
	defer tk.Stop()

	var lockConn *pgxpool.Conn
	defer func() {
		if lockConn != nil {
			unlock(lockConn)
		}
	}()

	for {
		select {
		case now := <-tk.C:
			// пытаемся стать лидером
			if lockConn == nil {
				conn, ok, err := tryLock(ctx, pool)
				if err != nil {
					logger.Error("advisory lock failed", "error", err)
					continue
				}
				if !ok {
					continue
				}
				// Прежний лидер мог продвинуть расписания: без их состояния
				// лидерство не берём.
				if err := sched.Restore(ctx); err != nil {
					logger.Error("failed to restore schedules", "error", err)
					unlock(conn)
					continue
				}
				lockConn = conn
				logger.Info("acquired scheduler leadership")
			}

			sched.Tick(ctx, now)

		case <-ctx.Done():
			return
		}
	}
}

// unlock снимает advisory lock и возвращает соединение в pool.
func unlock(conn *pgxpool.Conn) {
	_, _ = conn.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
	conn.Release()
}

// tryLock берёт соединение и пытается захватить на нём advisory lock.
// Без lock соединение возвращается в pool.
func tryLock(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, bool, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return conn, true, nil
}
