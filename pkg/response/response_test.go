package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
	"github.com/noah-isme/lab-scheduler-api/pkg/middleware/requestid"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.HeaderKey, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorCarriesConflictsAndRequestID(t *testing.T) {
	conflicts := []models.ConflictingBooking{{ScheduleID: "existing", TimeSlot: "14:00-16:00"}}
	w := serve(t, func(c *gin.Context) {
		Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "lab is already booked"), conflicts))
	})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var body struct {
		Error struct {
			Code      string                      `json:"code"`
			RequestID string                      `json:"request_id"`
			Details   []models.ConflictingBooking `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.Equal(t, conflicts, body.Error.Details)
	assert.NotContains(t, w.Body.String(), `"status"`)
}

func TestErrorHidesInternalCause(t *testing.T) {
	w := serve(t, func(c *gin.Context) { Error(c, errors.New("pq: connection refused")) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestJSONEchoesRequestID(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, []string{"chem-lab"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1})
	})

	var body struct {
		Meta       map[string]interface{} `json:"meta"`
		Pagination models.Pagination      `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body.Meta["request_id"])
	assert.Equal(t, 1, body.Pagination.TotalCount)
}

func TestConflictDetails(t *testing.T) {
	body := &ErrorBody{Details: []models.ConflictingBooking{{ScheduleID: "a"}}}
	assert.Len(t, body.ConflictDetails(), 1)
	assert.Nil(t, (&ErrorBody{Details: "other"}).ConflictDetails())
}
