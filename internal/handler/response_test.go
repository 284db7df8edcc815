package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

func TestToAppErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("book: %w", scheduling.ErrBlankReason), http.StatusBadRequest},
		{fmt.Errorf("book: %w", scheduling.ErrStartInPast), http.StatusBadRequest},
		{scheduling.ErrPractitionerUnavailable, http.StatusConflict},
		{scheduling.ErrInvalidTransition, http.StatusConflict},
		{directory.ErrDuplicateID, http.StatusConflict},
		{fmt.Errorf("%w: %w", scheduling.ErrPatientNotFound, directory.ErrPatientNotFound), http.StatusNotFound},
		{directory.ErrAccountNotFound, http.StatusNotFound},
		{scheduling.ErrNotOwner, http.StatusForbidden},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperrors.BadRequest("bad date", nil), http.StatusBadRequest},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, ToAppError(tt.err).StatusCode(), tt.err.Error())
	}
}
