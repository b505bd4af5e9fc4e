package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lab-scheduler-api/internal/models"
)

// NewValidator returns a validator with the booking-specific tags registered.
//
//	clock: "H:MM" or "HH:MM" wall-clock time
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.NormalizeClock(fl.Field().String())
		return err == nil
	})
	return v
}
