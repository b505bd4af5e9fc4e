package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-scheduler-api/internal/middleware"
	"github.com/noah-isme/lab-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
)

func actorFromContext(c *gin.Context) (models.ActingUser, error) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return models.ActingUser{}, appErrors.ErrUnauthorized
	}
	return claims.Actor(), nil
}

// scheduleFilterFromQuery reads labId, from, to, page and limit.
func scheduleFilterFromQuery(c *gin.Context) (models.ScheduleFilter, error) {
	filter := models.ScheduleFilter{LabID: strings.TrimSpace(c.Query("labId"))}
	if raw := c.Query("from"); raw != "" {
		from, err := models.ParseDate(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := models.ParseDate(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	return filter, nil
}
