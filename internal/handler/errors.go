package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/service"
)

// retryAfterSeconds is sent with 503 responses caused by lock contention.
const retryAfterSeconds = "1"

var notFoundErrors = []error{
	service.ErrProductNotFound,
	service.ErrCartNotFound,
	service.ErrCartItemNotFound,
	service.ErrCouponNotFound,
	service.ErrOrderNotFound,
	service.ErrCategoryNotFound,
	service.ErrReviewNotFound,
}

var conflictErrors = []error{
	service.ErrIllegalTransition,
	service.ErrProductExists,
	service.ErrProductNotDeleted,
	service.ErrCouponExists,
	service.ErrCategoryExists,
	service.ErrCategoryInUse,
	service.ErrReviewExists,
}

// writeServiceError maps a service error to its HTTP status and body.
// Anything unrecognised is logged with op and reported as a 500.
func writeServiceError(c *fiber.Ctx, op string, err error) error {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":     "insufficient stock",
			"shortages": stockErr.Shortages,
		})
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  ve.Error(),
			"fields": fiber.Map{ve.Field: ve.Message},
		})
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	case errors.Is(err, service.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": service.ErrEmptyCart.Error()})
	case errors.Is(err, service.ErrDeleteNotAllowed):
		c.Set(fiber.HeaderAllow, "GET, PATCH")
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": service.ErrDeleteNotAllowed.Error()})
	case errors.Is(err, service.ErrLockTimeout):
		log.Warn().Err(err).Str("op", op).Msg("lock wait exceeded")
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": service.ErrLockTimeout.Error()})
	}

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": target.Error()})
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
	}

	log.Error().Err(err).Str("op", op).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// formatValidationError converts validator errors into a summary message for
// the first failing field plus a message per field, keyed by JSON name.
func formatValidationError(err error) (string, map[string]string) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request", nil
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	first := ve[0].Field()
	return "invalid request: " + first + " " + fields[first], fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "cannot be whitespace only"
	case "max":
		return "exceeds maximum length of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// parseBody decodes and validates the JSON body into req. When it returns
// false the error response has already been written.
func parseBody(c *fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := v.Struct(req); err != nil {
		msg, fields := formatValidationError(err)
		body := fiber.Map{"error": msg}
		if fields != nil {
			body["fields"] = fields
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(body)
	}
	return true, nil
}

// paramID reads a positive integer path parameter.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid request: %s must be a positive integer", name)
	}
	return int64(id), nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}
