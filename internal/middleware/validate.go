package middleware

import (
	"errors"
	"net/http"

	"github.com/bilgisen/newsbridge/internal/ingest"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	// BodyKey holds the validated request body in c.Locals.
	BodyKey = "validated"
	// QueryKey holds the validated query parameters in c.Locals.
	QueryKey = "queryParams"
)

var validate = validator.New()

// ValidateBody parses the request body into a fresh T per request, validates
// it and stores the *T under BodyKey.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v := new(T)
		if err := c.BodyParser(v); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
				"msg":   err.Error(),
			})
		}
		if err := validate.Struct(v); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": fieldErrors(err),
			})
		}
		c.Locals(BodyKey, v)
		return c.Next()
	}
}

// ValidateQuery is ValidateBody for query parameters, stored under QueryKey.
func ValidateQuery[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v := new(T)
		if err := c.QueryParser(v); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid query parameters",
				"msg":   err.Error(),
			})
		}
		if err := validate.Struct(v); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "invalid query parameters",
				"fields": fieldErrors(err),
			})
		}
		c.Locals(QueryKey, v)
		return c.Next()
	}
}

func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

// ErrorHandler maps handler errors to a JSON response. Pipeline sentinels
// get their own status; other errors keep their message so operators see
// why a run failed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, storage.ErrNotFound):
		code = fiber.StatusNotFound
		msg = "not found"
	case errors.Is(err, ingest.ErrRateLimited):
		code = fiber.StatusTooManyRequests
	}

	event := logger.Component("http").Error()
	if code < fiber.StatusInternalServerError {
		event = logger.Component("http").Warn()
	}
	event.Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	if msg == "" {
		msg = http.StatusText(code)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
