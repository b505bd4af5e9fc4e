package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
)

// ErrNotUpdated is returned when a guarded update matched no active booking.
var ErrNotUpdated = errors.New("no active schedule updated")

const scheduleColumns = `id, lab_id, professor_id, date, start_time, end_time, time_slot, course_name, class_name, expected_students, purpose, status, created_at, updated_at`

const scheduleDetailSelect = `SELECT s.id, s.lab_id, s.professor_id, s.date, s.start_time, s.end_time, s.time_slot, s.course_name, s.class_name, s.expected_students, s.purpose, s.status, s.created_at, s.updated_at, l.name AS lab_name, l.slug AS lab_slug, COALESCE(u.username, '') AS professor_name, COALESCE(u.email, '') AS professor_email FROM schedules s JOIN labs l ON l.id = s.lab_id LEFT JOIN users u ON u.id = s.professor_id`

// ScheduleRepository provides persistence for lab bookings.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// BeginTxx starts a transaction on the underlying pool.
func (r *ScheduleRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// List returns non-cancelled schedules ordered by date then start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	where, args := scheduleFilterClause(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s WHERE %s ORDER BY s.date ASC, s.start_time ASC LIMIT %d OFFSET %d", scheduleDetailSelect, where, size, offset)
	schedules := make([]models.ScheduleDetail, 0)
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules s WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// ListUnpaged returns every non-cancelled schedule matching filter.
func (r *ScheduleRepository) ListUnpaged(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	where, args := scheduleFilterClause(filter)
	query := fmt.Sprintf("%s WHERE %s ORDER BY s.date ASC, s.start_time ASC", scheduleDetailSelect, where)
	schedules := make([]models.ScheduleDetail, 0)
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules for export: %w", err)
	}
	return schedules, nil
}

func scheduleFilterClause(filter models.ScheduleFilter) (string, []interface{}) {
	conditions := []string{"s.status <> 'cancelled'"}
	var args []interface{}

	if filter.LabID != "" {
		args = append(args, filter.LabID)
		conditions = append(conditions, fmt.Sprintf("s.lab_id = $%d", len(args)))
	}
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		conditions = append(conditions, fmt.Sprintf("s.professor_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, models.FormatDate(*filter.From))
		conditions = append(conditions, fmt.Sprintf("s.date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, models.FormatDate(*filter.To))
		conditions = append(conditions, fmt.Sprintf("s.date <= $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// FindByID loads a schedule by id. sql.ErrNoRows is returned untouched.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return &sched, nil
}

// FindDetailByID loads a schedule joined with lab and professor names.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	query := scheduleDetailSelect + ` WHERE s.id = $1`
	var detail models.ScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule detail: %w", err)
	}
	return &detail, nil
}

// ListActiveByLabDate returns the non-cancelled bookings of a lab on a date.
func (r *ScheduleRepository) ListActiveByLabDate(ctx context.Context, labID string, date time.Time) ([]models.ScheduleDetail, error) {
	return listActiveByLabDate(ctx, r.db, labID, date)
}

// ListActiveByLabDateTx is ListActiveByLabDate inside an existing transaction.
func (r *ScheduleRepository) ListActiveByLabDateTx(ctx context.Context, tx *sqlx.Tx, labID string, date time.Time) ([]models.ScheduleDetail, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	return listActiveByLabDate(ctx, tx, labID, date)
}

func listActiveByLabDate(ctx context.Context, q sqlx.QueryerContext, labID string, date time.Time) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + ` WHERE s.lab_id = $1 AND s.date = $2 AND s.status <> 'cancelled' ORDER BY s.start_time ASC`
	schedules := make([]models.ScheduleDetail, 0)
	if err := sqlx.SelectContext(ctx, q, &schedules, query, labID, models.FormatDate(date)); err != nil {
		return nil, fmt.Errorf("list lab schedules for date: %w", err)
	}
	return schedules, nil
}

// LockLabDate serialises bookings of one lab on one date until tx ends.
func (r *ScheduleRepository) LockLabDate(ctx context.Context, tx *sqlx.Tx, labID string, date time.Time) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	key := labID + "|" + models.FormatDate(date)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock lab date: %w", err)
	}
	return nil
}

// CreateWithTx inserts a schedule inside tx. A clash with the active-window
// unique index yields ErrDuplicate.
func (r *ScheduleRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, lab_id, professor_id, date, start_time, end_time, time_slot, course_name, class_name, expected_students, purpose, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := tx.ExecContext(ctx, query,
		schedule.ID,
		schedule.LabID,
		schedule.ProfessorID,
		models.FormatDate(schedule.Date),
		schedule.StartTime,
		schedule.EndTime,
		schedule.TimeSlot,
		schedule.CourseName,
		schedule.ClassName,
		schedule.ExpectedStudents,
		schedule.Purpose,
		schedule.Status,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if known := classifyWriteError(err); known != nil {
			return known
		}
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of an active schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	return updateSchedule(ctx, r.db, schedule)
}

// UpdateWithTx is Update inside an existing transaction.
func (r *ScheduleRepository) UpdateWithTx(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return updateSchedule(ctx, tx, schedule)
}

func updateSchedule(ctx context.Context, exec sqlx.ExecerContext, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET date = $2, start_time = $3, end_time = $4, time_slot = $5, course_name = $6, class_name = $7, expected_students = $8, purpose = $9, updated_at = $10 WHERE id = $1 AND status = 'scheduled'`
	res, err := exec.ExecContext(ctx, query,
		schedule.ID,
		models.FormatDate(schedule.Date),
		schedule.StartTime,
		schedule.EndTime,
		schedule.TimeSlot,
		schedule.CourseName,
		schedule.ClassName,
		schedule.ExpectedStudents,
		schedule.Purpose,
		schedule.UpdatedAt,
	)
	if err != nil {
		if known := classifyWriteError(err); known != nil {
			return known
		}
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotUpdated
	}
	return nil
}

// Cancel marks an active schedule cancelled. The record is kept.
func (r *ScheduleRepository) Cancel(ctx context.Context, id string) error {
	const query = `UPDATE schedules SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.ScheduleStatusCancelled, time.Now().UTC(), models.ScheduleStatusScheduled)
	if err != nil {
		return fmt.Errorf("cancel schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel schedule rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotUpdated
	}
	return nil
}
