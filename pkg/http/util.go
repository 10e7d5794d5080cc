package http

import (
	"net/url"

	"github.com/labstack/echo/v4"
)

// PathParam returns the unescaped path parameter name, or the raw value if it
// is not valid escaping.
func PathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
