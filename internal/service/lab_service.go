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
	"go.uber.org/zap"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
	"github.com/noah-isme/lab-scheduler-api/internal/repository"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
)

const labListCacheKey = labCachePrefix + "list"

type labRepository interface {
	List(ctx context.Context) ([]models.Lab, error)
	FindByID(ctx context.Context, id string) (*models.Lab, error)
	FindBySlug(ctx context.Context, slug string) (*models.Lab, error)
	Create(ctx context.Context, lab *models.Lab) error
}

type labScheduleReader interface {
	ListActiveByLabDate(ctx context.Context, labID string, date time.Time) ([]models.ScheduleDetail, error)
	ListUnpaged(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
}

// CreateLabRequest describes the payload for registering a lab.
type CreateLabRequest struct {
	Slug        string `json:"slug" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
	Image       string `json:"image"`
}

// LabService serves the lab catalogue and resolves lab identifiers.
type LabService struct {
	repo      labRepository
	schedules labScheduleReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLabService constructs a LabService.
func NewLabService(repo labRepository, schedules labScheduleReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LabService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabService{repo: repo, schedules: schedules, cache: cache, validator: validate, logger: logger}
}

// Resolve finds a lab by UUID or slug. UUID-shaped identifiers are tried as
// ids first and fall back to the slug lookup on a miss.
func (s *LabService) Resolve(ctx context.Context, identifier string) (*models.Lab, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
	}

	if _, err := uuid.Parse(identifier); err == nil {
		lab, err := s.repo.FindByID(ctx, identifier)
		if err == nil {
			return lab, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to load lab")
		}
	}

	lab, err := s.repo.FindBySlug(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lab not found")
		}
		return nil, appErrors.Internal(err, "failed to load lab")
	}
	return lab, nil
}

// List returns every lab sorted by name.
func (s *LabService) List(ctx context.Context) ([]models.Lab, error) {
	gen, cacheable := s.cache.Generation(ctx, labCachePrefix)
	key := fmt.Sprintf("%s:g%d", labListCacheKey, gen)
	if cacheable {
		var cached []models.Lab
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}

	labs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list labs")
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, labs, 0)
	}
	return labs, nil
}

// Get returns the lab named by identifier.
func (s *LabService) Get(ctx context.Context, identifier string) (*models.Lab, error) {
	return s.Resolve(ctx, identifier)
}

// Create registers a lab, applying default capacity and image.
func (s *LabService) Create(ctx context.Context, req CreateLabRequest) (*models.Lab, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lab payload")
	}

	lab := &models.Lab{
		Slug:        strings.TrimSpace(req.Slug),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Image:       req.Image,
	}
	if lab.Capacity == 0 {
		lab.Capacity = models.DefaultLabCapacity
	}
	if lab.Image == "" {
		lab.Image = models.DefaultLabImage
	}

	if err := s.repo.Create(ctx, lab); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "lab slug already exists")
		}
		return nil, appErrors.Internal(err, "failed to create lab")
	}

	_ = s.cache.InvalidateNamespace(ctx, labCachePrefix)
	s.logger.Info("lab created", zap.String("lab_id", lab.ID), zap.String("slug", lab.Slug))
	return lab, nil
}

// ListSchedules returns the active bookings of a lab, optionally limited to
// one date.
func (s *LabService) ListSchedules(ctx context.Context, identifier, date string) ([]models.ScheduleDetail, error) {
	lab, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(date) != "" {
		day, err := models.ParseDate(date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		schedules, err := s.schedules.ListActiveByLabDate(ctx, lab.ID, day)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list lab schedules")
		}
		return schedules, nil
	}

	schedules, err := s.schedules.ListUnpaged(ctx, models.ScheduleFilter{LabID: lab.ID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list lab schedules")
	}
	return schedules, nil
}
