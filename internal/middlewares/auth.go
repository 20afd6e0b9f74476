package middlewares

import (
	"crypto/subtle"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wacampaign/campaign-scheduler/pkg/logger"
	"github.com/wacampaign/campaign-scheduler/pkg/response"
)

const (
	APIKeyHeader = "x-api-key"

	// Operators may send the key either as x-api-key or as a bearer token.
	operatorKeyLookup = "header:" + APIKeyHeader + ",header:" + echo.HeaderAuthorization
)

var errOperatorKeyNotConfigured = errors.New("API_KEY is not configured for the operator API")

// OperatorAuth guards the operator API: manual ticks, on-demand runs, resumes
// and session reconnects. Without a configured key every request is refused.
func OperatorAuth(apiKey string) echo.MiddlewareFunc {
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(c, errOperatorKeyNotConfigured)
			}
		}
	}

	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  operatorKeyLookup,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			logger.Warnf("Rejected operator request %s %s: %v", c.Request().Method, c.Path(), err)
			return response.Unauthorized(c)
		},
	})
}
