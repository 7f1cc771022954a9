package relay

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/relay/pkg/llm"
)

// handleError renders any error returned before the response body was
// started. Provider HTTP failures map to 502, or to the upstream status when
// it is itself a 5xx.
func (r *Relay) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if apiErr, ok := llm.AsAPIError(err); ok {
		status = fiber.StatusBadGateway
		if apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599 {
			status = apiErr.StatusCode
		}
	}

	if status >= fiber.StatusInternalServerError {
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		}
		if hint := providerHint(err); hint != "" {
			attrs = append(attrs, "hint", hint)
		}
		r.logger.Error("request failed", attrs...)
	}

	return c.Status(status).JSON(llm.ErrorResponse{Error: err.Error()})
}

// providerHint suggests an operator action for common provider failures.
func providerHint(err error) string {
	switch {
	case llm.IsAuth(err):
		return "the provider rejected the credential; run 'relay auth <provider>' or set its environment variable"
	case llm.IsQuota(err):
		return "the provider quota or rate limit is exhausted"
	default:
		return ""
	}
}
