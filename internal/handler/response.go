package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/auth"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccessResponse(data))
}

// Fail records err for the error middleware and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(ToAppError(err))
	c.Abort()
}

// ToAppError classifies domain errors for the transport.
func ToAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case scheduling.IsValidation(err),
		errors.Is(err, directory.ErrInvalidPerson),
		errors.Is(err, directory.ErrInvalidHistoryEntry):
		return apperrors.BadRequest(err.Error(), err)
	case scheduling.IsConflict(err):
		return apperrors.Conflict(err.Error(), err)
	case errors.Is(err, directory.ErrDuplicateID), errors.Is(err, directory.ErrDuplicateLogin):
		return apperrors.Duplicate(err.Error(), err)
	case scheduling.IsNotFound(err),
		errors.Is(err, directory.ErrPatientNotFound),
		errors.Is(err, directory.ErrPractitionerNotFound),
		errors.Is(err, directory.ErrAdministratorNotFound),
		errors.Is(err, directory.ErrAccountNotFound):
		return apperrors.NotFound(err.Error(), err)
	case errors.Is(err, scheduling.ErrNotOwner):
		return apperrors.Forbidden(err)
	case auth.IsAuthError(err):
		return apperrors.Unauthorized(err)
	}
	return apperrors.Internal(err)
}

const actorKey = "actor"

func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(actorKey, actor)
}

// ActorFrom returns the authenticated actor; nil outside authenticated routes.
func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return nil
}

// IDParam parses a positive integer path parameter.
func IDParam(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("invalid "+name, err)
	}
	return id, nil
}
