package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/taskdep/internal/domain"
)

// ScheduleRepo — состояние расписаний.
//
// Определения расписаний приходят из файла, а в таблице живут
// next_due_at и последний run, чтобы они пережили рестарт и смену лидера.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

const scheduleColumns = `name, graph_file, cron_expr, interval_sec, timezone,
	enabled, next_due_at, last_run_at, last_run_id`

// List возвращает все сохранённые расписания.
func (r *ScheduleRepo) List(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]domain.Schedule, 0)
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

// Save сохраняет расписание (upsert по name).
func (r *ScheduleRepo) Save(ctx context.Context, sched *domain.Schedule) error {
	query := `
		INSERT INTO schedules (` + scheduleColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (name) DO UPDATE
		SET graph_file = EXCLUDED.graph_file, cron_expr = EXCLUDED.cron_expr,
		    interval_sec = EXCLUDED.interval_sec, timezone = EXCLUDED.timezone,
		    enabled = EXCLUDED.enabled, next_due_at = EXCLUDED.next_due_at,
		    last_run_at = EXCLUDED.last_run_at, last_run_id = EXCLUDED.last_run_id,
		    updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query,
		sched.Name,
		sched.GraphFile,
		nullString(sched.CronExpr),
		nullInt(sched.IntervalSec),
		sched.Timezone,
		sched.Enabled,
		sched.NextDueAt,
		sched.LastRunAt,
		sched.LastRunID,
	)
	if err != nil {
		return fmt.Errorf("save schedule %s: %w", sched.Name, translate(err))
	}
	return nil
}

// scanSchedule сканирует одну строку в Schedule.
func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	var cronExpr *string
	var intervalSec *int

	err := row.Scan(
		&s.Name,
		&s.GraphFile,
		&cronExpr,
		&intervalSec,
		&s.Timezone,
		&s.Enabled,
		&s.NextDueAt,
		&s.LastRunAt,
		&s.LastRunID,
	)
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	if cronExpr != nil {
		s.CronExpr = *cronExpr
	}
	if intervalSec != nil {
		s.IntervalSec = *intervalSec
	}
	return &s, nil
}

// nullInt возвращает nil для нулевого int.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}
