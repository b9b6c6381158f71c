package echoutil

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// SetLevel sets log level of the echo logger by name.
//
// Unknown names fall back to "info".
func SetLevel(e *echo.Echo, level string) {
	switch strings.ToLower(level) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "warn":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.INFO)
	}
}

// LogHandlerFunc logs each request with its method, uri and response status.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if err := next(c); err != nil {
			c.Logger().Infof("%s %s : error: %v", req.Method, req.RequestURI, err)
			return err
		}
		c.Logger().Infof("%s %s : %d", req.Method, req.RequestURI, c.Response().Status)
		return nil
	}
}
