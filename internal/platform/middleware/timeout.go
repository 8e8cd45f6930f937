package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// TimeoutMessage is returned with a 504 when a request outlives its deadline.
const TimeoutMessage = "Request took too long. Please try again."

// RequestTimeout sets a deadline on each request's context. The handler runs
// on the request goroutine and owns the response; when it gives up with an
// error wrapping context.DeadlineExceeded the caller gets a 504. Paths with
// one of the skip prefixes have no deadline.
func RequestTimeout(timeout time.Duration, skipPrefixes ...string) echo.MiddlewareFunc {
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: timeout,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			for _, p := range skipPrefixes {
				if strings.HasPrefix(path, p) {
					return true
				}
			}
			return false
		},
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return echo.NewHTTPError(http.StatusGatewayTimeout, TimeoutMessage).SetInternal(err)
			}
			return err
		},
	})
}
