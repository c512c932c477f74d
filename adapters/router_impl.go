package adapters

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"
	prettylogger "github.com/rdbell/echo-pretty-logger"
	"github.com/soffa-projects/jobrpc/log"
	"github.com/ztrue/tracerr"
)

type RouterConfig struct {
	// AllowOrigins enables CORS for browser callers when set.
	AllowOrigins []string
	// Quiet turns the access log off.
	Quiet bool
}

// NewEchoRouter builds the echo instance the proxy serves from. It does not
// rewrite paths or add request ids: traffic has to reach the upstream
// exactly as the client sent it.
func NewEchoRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if !cfg.Quiet {
		e.Use(prettylogger.Logger)
	}
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogLevel: gommonlog.ERROR,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			tracerr.PrintSourceColor(tracerr.Wrap(err))
			return writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		},
	}))
	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowHeaders: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		}))
	}
	e.HTTPErrorHandler = errorHandler
	return e
}

// errorHandler answers router and handler errors in the same
// {ok:false,code,msg} shape the automation server uses.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}
	if status >= 500 {
		log.Error("request %s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	if werr := writeError(c, status, codeFor(status), message); werr != nil {
		log.Warn("failed to write error response: %v", werr)
	}
}

func writeError(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, map[string]any{
		"ok":   false,
		"code": code,
		"msg":  message,
	})
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadGateway:
		return "UPSTREAM_UNAVAILABLE"
	}
	return "INTERNAL_ERROR"
}
