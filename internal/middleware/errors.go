package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bark-bank/bark/internal/bankerr"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorHandler renders every error as {"error": {"kind": ..., "message": ...}}
// with the status derived from its kind.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": errorBody{Kind: kindForStatus(fe.Code), Message: fe.Message}})
		}

		kind := bankerr.KindOf(err)
		status := bankerr.HTTPStatus(kind)
		if status >= http.StatusInternalServerError {
			requestID, _ := c.Locals(requestIDHeader).(string)
			logger.Error("request failed", "kind", string(kind), "path", c.Path(), "request_id", requestID, "error", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": errorBody{Kind: string(kind), Message: publicMessage(kind, err)}})
	}
}

func publicMessage(kind bankerr.Kind, err error) string {
	if kind == bankerr.KindInternal {
		return "internal server error"
	}
	var be *bankerr.Error
	if errors.As(err, &be) && be.Msg != "" {
		return be.Msg
	}
	return strings.ReplaceAll(string(kind), "_", " ")
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return string(bankerr.KindInvalidRequest)
	case http.StatusUnauthorized:
		return string(bankerr.KindUnauthorized)
	case http.StatusForbidden:
		return string(bankerr.KindForbidden)
	case http.StatusNotFound:
		return string(bankerr.KindNotFound)
	case http.StatusConflict:
		return string(bankerr.KindConflict)
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if code >= http.StatusInternalServerError {
		return string(bankerr.KindInternal)
	}
	return strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_"))
}
