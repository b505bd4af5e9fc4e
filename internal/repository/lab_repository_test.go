package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
)

var labRowColumns = []string{"id", "slug", "name", "description", "location", "capacity", "image", "created_at", "updated_at"}

func TestLabRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	rows := sqlmock.NewRows(labRowColumns).
		AddRow("11111111-1111-1111-1111-111111111111", "chem-lab", "Chemistry", "", "Block A", 30, models.DefaultLabImage, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + labColumns + " FROM labs ORDER BY name ASC")).WillReturnRows(rows)

	labs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, "chem-lab", labs[0].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabRepositoryFindBySlugNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM labs WHERE slug = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabRepositoryCreateDuplicateSlug(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectExec("INSERT INTO labs").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Lab{Slug: "chem-lab", Name: "Chemistry"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLabRepository(db)

	mock.ExpectExec("INSERT INTO labs").
		WithArgs(sqlmock.AnyArg(), "chem-lab", "Chemistry", "", "", 30, models.DefaultLabImage, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	lab := &models.Lab{Slug: "chem-lab", Name: "Chemistry", Capacity: 30, Image: models.DefaultLabImage}
	require.NoError(t, repo.Create(context.Background(), lab))
	assert.NotEmpty(t, lab.ID)
	assert.False(t, lab.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "user-1"
	entry := &models.AuditLog{UserID: &userID, Action: models.AuditActionScheduleCancel, Resource: "schedules", Payload: []byte(`{"status":200}`)}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
