package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator checks the bearer token.
	// Required.
	Validator func(token string) (bool, error)

	// ErrorHandler is executed for a missing or invalid token.
	// Optional. Default: 401 unauthorized
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the key used to store the token in the context.
	// Optional. Default: "token"
	ContextKey string

	// Header is the header carrying the token.
	// Optional. Default: "Authorization"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Component("http").Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	},
	ContextKey: "token",
	Header:     fiber.HeaderAuthorization,
}

// NewAuth creates a bearer token middleware.
func NewAuth(config ...AuthConfig) fiber.Handler {
	cfg := ConfigDefault

	if len(config) > 0 {
		cfg = config[0]

		if cfg.ErrorHandler == nil {
			cfg.ErrorHandler = ConfigDefault.ErrorHandler
		}
		if cfg.ContextKey == "" {
			cfg.ContextKey = ConfigDefault.ContextKey
		}
		if cfg.Header == "" {
			cfg.Header = ConfigDefault.Header
		}
	}
	if cfg.Validator == nil {
		panic("middleware: auth requires a Validator")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		header := c.Get(cfg.Header)
		if header == "" {
			return cfg.ErrorHandler(c, errors.New("missing bearer token"))
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return cfg.ErrorHandler(c, errors.New("malformed authorization header"))
		}

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, errors.New("invalid bearer token"))
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// SecretAuth accepts requests bearing secret. With bypass set every request
// passes; that is only ever enabled for local development.
func SecretAuth(secret string, bypass bool) fiber.Handler {
	return NewAuth(AuthConfig{
		Next: func(*fiber.Ctx) bool { return bypass },
		Validator: func(token string) (bool, error) {
			if secret == "" {
				return false, errors.New("no trigger secret configured")
			}
			return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1, nil
		},
	})
}
