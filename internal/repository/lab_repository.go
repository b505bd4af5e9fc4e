package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
)

const labColumns = `id, slug, name, description, location, capacity, image, created_at, updated_at`

// LabRepository provides persistence for labs.
type LabRepository struct {
	db *sqlx.DB
}

// NewLabRepository creates a new lab repository.
func NewLabRepository(db *sqlx.DB) *LabRepository {
	return &LabRepository{db: db}
}

// List returns every lab ordered by name.
func (r *LabRepository) List(ctx context.Context) ([]models.Lab, error) {
	query := `SELECT ` + labColumns + ` FROM labs ORDER BY name ASC`
	labs := make([]models.Lab, 0)
	if err := r.db.SelectContext(ctx, &labs, query); err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	return labs, nil
}

// FindByID loads a lab by its UUID. sql.ErrNoRows is returned untouched.
func (r *LabRepository) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	query := `SELECT ` + labColumns + ` FROM labs WHERE id = $1`
	var lab models.Lab
	if err := r.db.GetContext(ctx, &lab, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lab by id: %w", err)
	}
	return &lab, nil
}

// FindBySlug loads a lab by its human-readable slug.
func (r *LabRepository) FindBySlug(ctx context.Context, slug string) (*models.Lab, error) {
	query := `SELECT ` + labColumns + ` FROM labs WHERE slug = $1`
	var lab models.Lab
	if err := r.db.GetContext(ctx, &lab, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find lab by slug: %w", err)
	}
	return &lab, nil
}

// Create stores a new lab.
func (r *LabRepository) Create(ctx context.Context, lab *models.Lab) error {
	if lab.ID == "" {
		lab.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lab.CreatedAt = now
	lab.UpdatedAt = now

	const query = `INSERT INTO labs (id, slug, name, description, location, capacity, image, created_at, updated_at) VALUES (:id, :slug, :name, :description, :location, :capacity, :image, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lab); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create lab: %w", err)
	}
	return nil
}
