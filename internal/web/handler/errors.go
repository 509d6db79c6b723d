package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/infodir/opa-permission-api/internal/custompolicy"
	applicationctl "github.com/infodir/opa-permission-api/internal/db/controller/application"
	custompolicyctl "github.com/infodir/opa-permission-api/internal/db/controller/custompolicy"
	"github.com/infodir/opa-permission-api/internal/db/controller/rolemapping"
	"github.com/infodir/opa-permission-api/internal/opa"
)

// ErrorResponse is the JSON error envelope of all API endpoints.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// RespondError maps a service error onto the API status codes: conflicts
// to 409, missing resources to 404, rejected policy sources to 400, an
// unreachable or failing policy engine to 503 and everything else to 500.
func RespondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	var (
		unreachableErr *opa.UnreachableError
		syncErr        *opa.SyncError
	)

	switch {
	case errors.Is(err, rolemapping.ErrMappingConflict),
		errors.Is(err, applicationctl.ErrApplicationAlreadyExists),
		errors.Is(err, custompolicyctl.ErrPolicyAlreadyExists):
		status = fiber.StatusConflict
		message = "resource already exists"
	case errors.Is(err, rolemapping.ErrMappingNotFound),
		errors.Is(err, applicationctl.ErrApplicationNotFound),
		errors.Is(err, custompolicyctl.ErrPolicyNotFound):
		status = fiber.StatusNotFound
		message = "resource not found"
	case errors.Is(err, custompolicy.ErrInvalidPolicy):
		status = fiber.StatusBadRequest
		message = "policy validation failed"
	case errors.As(err, &unreachableErr), errors.As(err, &syncErr):
		status = fiber.StatusServiceUnavailable
		message = "policy engine unavailable"
	}

	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Detail:    err.Error(),
		Timestamp: time.Now().UTC(),
		Path:      c.Path(),
	})
}

// RespondBadRequest rejects a request with 400 and the given detail.
func RespondBadRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:     "invalid request",
		Detail:    detail,
		Timestamp: time.Now().UTC(),
		Path:      c.Path(),
	})
}
