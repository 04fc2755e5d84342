// Package httpapi binds internal/tools.Dispatcher to plain JSON-over-HTTP,
// for callers that don't speak MCP (curl, a web dashboard, another
// service). Grounded on pkg/server's echo.Echo wrapper and the same
// generic-envelope idiom internal/mcp uses: one route per operation,
// request body decoded by the dispatcher itself, response always the
// uniform toolenvelope.Envelope shape mapped onto an HTTP status.
package httpapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/devmemory/navigator/internal/tools"
	"github.com/devmemory/navigator/internal/toolenvelope"
)

// Register mounts one POST route per registered operation under /v1/tools,
// plus a GET /v1/tools listing, onto e.
func Register(e *echo.Echo, dispatcher *tools.Dispatcher, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{dispatcher: dispatcher, logger: logger}

	e.GET("/v1/tools", h.list)
	for _, name := range dispatcher.Names() {
		name := name
		e.POST("/v1/tools/"+name, func(c echo.Context) error {
			return h.invoke(c, name)
		})
	}
}

type handler struct {
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
}

func (h *handler) list(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"tools": h.dispatcher.Names()})
}

func (h *handler) invoke(c echo.Context, name string) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, toolenvelope.Envelope{
			Status: "error",
			Error:  "reading request body: " + err.Error(),
			Kind:   toolenvelope.InvalidArgument,
		})
	}

	env := h.dispatcher.Dispatch(c.Request().Context(), name, raw)

	h.logger.Debug("http tool invocation",
		zap.String("tool", name),
		zap.String("status", env.Status),
		zap.String("kind", string(env.Kind)),
	)

	return c.JSON(statusFor(env), env)
}

// statusFor maps a toolenvelope.Kind onto the HTTP status a REST client
// would expect, the same classification internal/toolenvelope already
// performs for the error's semantic category.
func statusFor(env toolenvelope.Envelope) int {
	if env.Status == "ok" {
		return http.StatusOK
	}
	switch env.Kind {
	case toolenvelope.InvalidArgument:
		return http.StatusBadRequest
	case toolenvelope.NotFound:
		return http.StatusNotFound
	case toolenvelope.PreconditionFailed:
		return http.StatusPreconditionFailed
	case toolenvelope.Conflict:
		return http.StatusConflict
	case toolenvelope.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
