package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/model"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
	"github.com/jwalitptl/medipass-api/pkg/validator"
)

var requestValidator = validator.New()

// BindJSON decodes the body and runs struct validation.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.BadRequest("invalid request body: "+err.Error(), err)
	}
	if err := requestValidator.Validate(req); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	return nil
}

// DateTime parses a minute-precision local date-time input.
func DateTime(s string, loc *time.Location) (time.Time, error) {
	t, err := model.ParseDateTime(s, loc)
	if err != nil {
		return time.Time{}, apperrors.BadRequest(err.Error(), err)
	}
	return t, nil
}

// Date parses a date-only input.
func Date(s string, loc *time.Location) (time.Time, error) {
	t, err := model.ParseDate(s, loc)
	if err != nil {
		return time.Time{}, apperrors.BadRequest(err.Error(), err)
	}
	return t, nil
}

// OptionalDate parses s when non-empty.
func OptionalDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := Date(s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
