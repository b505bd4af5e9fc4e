package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
	"github.com/noah-isme/lab-scheduler-api/internal/repository"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error)
	ListUnpaged(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	FindDetailByID(ctx context.Context, id string) (*models.ScheduleDetail, error)
	ListActiveByLabDate(ctx context.Context, labID string, date time.Time) ([]models.ScheduleDetail, error)
	ListActiveByLabDateTx(ctx context.Context, tx *sqlx.Tx, labID string, date time.Time) ([]models.ScheduleDetail, error)
	LockLabDate(ctx context.Context, tx *sqlx.Tx, labID string, date time.Time) error
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	UpdateWithTx(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule) error
	Cancel(ctx context.Context, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type labResolver interface {
	Resolve(ctx context.Context, identifier string) (*models.Lab, error)
}

// CreateScheduleRequest is the payload for booking a lab.
type CreateScheduleRequest struct {
	LabID            string `json:"labId" validate:"required"`
	Date             string `json:"date" validate:"required"`
	StartTime        string `json:"startTime" validate:"required,clock"`
	EndTime          string `json:"endTime" validate:"required,clock"`
	CourseName       string `json:"courseName" validate:"required,max=255"`
	ClassName        string `json:"className" validate:"required,max=255"`
	ExpectedStudents int    `json:"expectedStudents" validate:"gte=0"`
	Purpose          string `json:"purpose"`
}

// UpdateScheduleRequest carries the fields a professor may change. Nil fields
// are left untouched.
type UpdateScheduleRequest struct {
	Date             *string `json:"date" validate:"omitempty"`
	StartTime        *string `json:"startTime" validate:"omitempty,clock"`
	EndTime          *string `json:"endTime" validate:"omitempty,clock"`
	CourseName       *string `json:"courseName" validate:"omitempty,min=1,max=255"`
	ClassName        *string `json:"className" validate:"omitempty,min=1,max=255"`
	ExpectedStudents *int    `json:"expectedStudents" validate:"omitempty,gte=0"`
	Purpose          *string `json:"purpose"`
}

type cachedScheduleList struct {
	Items []models.ScheduleDetail `json:"items"`
	Total int                     `json:"total"`
}

// ScheduleService checks lab booking conflicts and drives the booking
// lifecycle.
type ScheduleService struct {
	repo      scheduleRepository
	labs      labResolver
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, labs labResolver, tx txProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, labs: labs, tx: tx, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// CheckConflicts returns the active bookings of the lab on date whose time
// range collides with start-end. It has no side effects.
func (s *ScheduleService) CheckConflicts(ctx context.Context, labRef, date, start, end string) ([]models.ConflictingBooking, error) {
	window, err := models.NewTimeWindow(start, end)
	if err != nil {
		return nil, validationError(err)
	}
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, validationError(err)
	}
	lab, err := s.labs.Resolve(ctx, labRef)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	existing, err := s.repo.ListActiveByLabDate(ctx, lab.ID, day)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check schedule conflicts")
	}
	conflicts := models.FindConflicts(existing, window, "")
	s.metrics.ObserveConflictCheck(len(conflicts) > 0, time.Since(began))
	return conflicts, nil
}

// CheckAvailability answers whether the "HH:MM-HH:MM" slot is free.
func (s *ScheduleService) CheckAvailability(ctx context.Context, labID, date, slot string) (*models.Availability, error) {
	if strings.TrimSpace(labID) == "" || strings.TrimSpace(date) == "" || strings.TrimSpace(slot) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "labId, date and time are required")
	}
	window, err := models.ParseTimeSlot(slot)
	if err != nil {
		return nil, validationError(err)
	}
	conflicts, err := s.CheckConflicts(ctx, labID, date, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	return &models.Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// Create books a lab for the acting professor. The conflict check and insert
// run in one transaction holding the lab/date lock.
func (s *ScheduleService) Create(ctx context.Context, actor models.ActingUser, req CreateScheduleRequest) (*models.ScheduleDetail, error) {
	if actor.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing acting user")
	}
	if actor.Role != models.RoleProfessor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only professors can book labs")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	window, err := models.NewTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, validationError(err)
	}
	day, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, validationError(err)
	}

	lab, err := s.labs.Resolve(ctx, req.LabID)
	if err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		LabID:            lab.ID,
		ProfessorID:      actor.ID,
		Date:             day,
		StartTime:        window.Start,
		EndTime:          window.End,
		TimeSlot:         window.Slot(),
		CourseName:       strings.TrimSpace(req.CourseName),
		ClassName:        strings.TrimSpace(req.ClassName),
		ExpectedStudents: req.ExpectedStudents,
		Purpose:          req.Purpose,
		Status:           models.ScheduleStatusScheduled,
	}

	if err := s.withLabDateLock(ctx, lab.ID, day, window, "", func(tx *sqlx.Tx) error {
		return s.repo.CreateWithTx(ctx, tx, schedule)
	}); err != nil {
		return nil, err
	}

	s.metrics.RecordBooking(BookingOutcomeCreated)
	s.invalidate(ctx)
	s.logger.Info("schedule created",
		zap.String("schedule_id", schedule.ID),
		zap.String("lab_id", lab.ID),
		zap.String("date", models.FormatDate(day)),
		zap.String("time_slot", schedule.TimeSlot),
	)
	return s.loadDetail(ctx, schedule, lab), nil
}

// Update changes an active booking owned by the actor. A changed date or time
// window is re-checked for conflicts, ignoring the booking itself.
func (s *ScheduleService) Update(ctx context.Context, actor models.ActingUser, id string, req UpdateScheduleRequest) (*models.ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	existing, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.ScheduleStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot update a %s schedule", existing.Status))
	}

	updated := *existing
	start, end := existing.StartTime, existing.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	window, err := models.NewTimeWindow(start, end)
	if err != nil {
		return nil, validationError(err)
	}
	if req.Date != nil {
		day, err := models.ParseDate(*req.Date)
		if err != nil {
			return nil, validationError(err)
		}
		updated.Date = day
	}
	updated.StartTime = window.Start
	updated.EndTime = window.End
	updated.TimeSlot = window.Slot()
	if req.CourseName != nil {
		updated.CourseName = strings.TrimSpace(*req.CourseName)
	}
	if req.ClassName != nil {
		updated.ClassName = strings.TrimSpace(*req.ClassName)
	}
	if req.ExpectedStudents != nil {
		updated.ExpectedStudents = *req.ExpectedStudents
	}
	if req.Purpose != nil {
		updated.Purpose = *req.Purpose
	}

	moved := models.FormatDate(updated.Date) != models.FormatDate(existing.Date) || updated.TimeSlot != existing.TimeSlot
	if moved {
		err = s.withLabDateLock(ctx, existing.LabID, updated.Date, window, existing.ID, func(tx *sqlx.Tx) error {
			return s.repo.UpdateWithTx(ctx, tx, &updated)
		})
	} else if err = s.repo.Update(ctx, &updated); err != nil {
		err = s.mapWriteError(err, "failed to update schedule")
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBooking(BookingOutcomeUpdated)
	s.invalidate(ctx)
	s.logger.Info("schedule updated", zap.String("schedule_id", updated.ID), zap.Bool("rescheduled", moved))
	return s.loadDetail(ctx, &updated, nil), nil
}

// Cancel soft-deletes an active booking owned by the actor.
func (s *ScheduleService) Cancel(ctx context.Context, actor models.ActingUser, id string) error {
	existing, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	switch existing.Status {
	case models.ScheduleStatusCancelled:
		return appErrors.Clone(appErrors.ErrInvalidState, "schedule is already cancelled")
	case models.ScheduleStatusScheduled:
	default:
		return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot cancel a %s schedule", existing.Status))
	}

	if err := s.repo.Cancel(ctx, existing.ID); err != nil {
		return s.mapWriteError(err, "failed to cancel schedule")
	}

	s.metrics.RecordBooking(BookingOutcomeCancelled)
	s.invalidate(ctx)
	s.logger.Info("schedule cancelled", zap.String("schedule_id", existing.ID), zap.String("actor_id", actor.ID))
	return nil
}

// Get returns one booking with lab and professor projections.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	return detail, nil
}

// ListAll returns active bookings sorted by date then start time.
func (s *ScheduleService) ListAll(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	filter, err := s.resolveFilter(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	filter.Page, filter.PageSize = page, size
	pagination := &models.Pagination{Page: page, PageSize: size}

	gen, cacheable := s.cache.Generation(ctx, scheduleCachePrefix)
	key := scheduleListCacheKey(filter, gen)
	if cacheable {
		var cached cachedScheduleList
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			pagination.TotalCount = cached.Total
			return cached.Items, pagination, nil
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list schedules")
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, cachedScheduleList{Items: items, Total: total}, 0)
	}
	pagination.TotalCount = total
	return items, pagination, nil
}

// ListMine returns the actor's active bookings.
func (s *ScheduleService) ListMine(ctx context.Context, actor models.ActingUser, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	if actor.ID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing acting user")
	}
	filter.ProfessorID = actor.ID
	return s.ListAll(ctx, filter)
}

// ListForExport returns every active booking matching filter, unpaginated.
func (s *ScheduleService) ListForExport(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	filter, err := s.resolveFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListUnpaged(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list schedules")
	}
	return items, nil
}

// withLabDateLock runs write inside a transaction that holds the advisory
// lock for lab and date and has found no conflicting booking.
func (s *ScheduleService) withLabDateLock(ctx context.Context, labID string, date time.Time, window models.TimeWindow, ignoreID string, write func(tx *sqlx.Tx) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.LockLabDate(ctx, tx, labID, date); err != nil {
		return appErrors.Internal(err, "failed to lock lab schedule")
	}
	began := time.Now()
	existing, err := s.repo.ListActiveByLabDateTx(ctx, tx, labID, date)
	if err != nil {
		return appErrors.Internal(err, "failed to check schedule conflicts")
	}
	conflicts := models.FindConflicts(existing, window, ignoreID)
	s.metrics.ObserveConflictCheck(len(conflicts) > 0, time.Since(began))
	if len(conflicts) > 0 {
		s.metrics.RecordBooking(BookingOutcomeConflict)
		err = conflictError(conflicts)
		return err
	}

	if err = write(tx); err != nil {
		err = s.mapWriteError(err, "failed to save schedule")
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit schedule transaction")
	}
	return nil
}

func (s *ScheduleService) loadOwned(ctx context.Context, actor models.ActingUser, id string) (*models.Schedule, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	if !actor.Owns(existing.ProfessorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the professor who booked this schedule can change it")
	}
	return existing, nil
}

// loadDetail re-reads the joined projection after a write. When that read
// fails the bare record is returned with whatever lab data is at hand.
func (s *ScheduleService) loadDetail(ctx context.Context, schedule *models.Schedule, lab *models.Lab) *models.ScheduleDetail {
	detail, err := s.repo.FindDetailByID(ctx, schedule.ID)
	if err == nil {
		return detail
	}
	s.logger.Warn("failed to reload schedule detail", zap.String("schedule_id", schedule.ID), zap.Error(err))
	fallback := &models.ScheduleDetail{Schedule: *schedule}
	if lab != nil {
		fallback.LabName = lab.Name
		fallback.LabSlug = lab.Slug
	}
	return fallback
}

func (s *ScheduleService) mapWriteError(err error, message string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrDuplicate):
		s.metrics.RecordBooking(BookingOutcomeConflict)
		return conflictError(nil)
	case errors.Is(err, repository.ErrUnknownReference):
		return appErrors.Clone(appErrors.ErrForbidden, "professor is not registered with the lab system")
	case errors.Is(err, repository.ErrNotUpdated):
		return appErrors.Clone(appErrors.ErrInvalidState, "schedule is no longer active")
	default:
		return appErrors.Internal(err, message)
	}
}

func (s *ScheduleService) resolveFilter(ctx context.Context, filter models.ScheduleFilter) (models.ScheduleFilter, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if filter.LabID == "" {
		return filter, nil
	}
	lab, err := s.labs.Resolve(ctx, filter.LabID)
	if err != nil {
		return filter, err
	}
	filter.LabID = lab.ID
	return filter, nil
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	_ = s.cache.InvalidateNamespace(ctx, scheduleCachePrefix)
}

func conflictError(conflicts []models.ConflictingBooking) *appErrors.Error {
	if conflicts == nil {
		conflicts = []models.ConflictingBooking{}
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "lab is already booked for this time slot"), conflicts)
}

func validationError(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
}

func scheduleListCacheKey(filter models.ScheduleFilter, gen int64) string {
	var from, to string
	if filter.From != nil {
		from = models.FormatDate(*filter.From)
	}
	if filter.To != nil {
		to = models.FormatDate(*filter.To)
	}
	return fmt.Sprintf("%slist:g%d:%s:%s:%s:%s:%d:%d", scheduleCachePrefix, gen, filter.LabID, filter.ProfessorID, from, to, filter.Page, filter.PageSize)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

func isUUID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}
