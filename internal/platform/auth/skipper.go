package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// AuthSkipper lets health checks, metrics scrapes and CORS preflights through without a token.
// Routes are matched on the registered pattern so trailing-slash and
// unrouted variants stay authenticated.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
