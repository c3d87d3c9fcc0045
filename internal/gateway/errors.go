package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/eislager/eislager-pro/sdk"
)

// statusFor maps an SDK error to the status the gateway answers with.
// Backend statuses pass through; errors without one are classified by type.
func statusFor(e *sdk.Error) int {
	if e.Status >= 400 {
		return e.Status
	}
	switch e.Type {
	case sdk.ErrorTypeRequest, sdk.ErrorTypeValidation:
		return fiber.StatusBadRequest
	case sdk.ErrorTypeUnauthorized:
		return fiber.StatusUnauthorized
	case sdk.ErrorTypeForbidden:
		return fiber.StatusForbidden
	case sdk.ErrorTypeNotFound:
		return fiber.StatusNotFound
	case sdk.ErrorTypeConflict:
		return fiber.StatusConflict
	case sdk.ErrorTypeTimeout:
		return fiber.StatusGatewayTimeout
	case sdk.ErrorTypeCanceled:
		return fiber.StatusRequestTimeout
	case sdk.ErrorTypeNetwork, sdk.ErrorTypeCircuitOpen:
		return fiber.StatusServiceUnavailable
	case sdk.ErrorTypeServer, sdk.ErrorTypeInvalidResponse:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as a failure envelope.
func writeError(c *fiber.Ctx, err error) error {
	var sdkErr *sdk.Error
	if errors.As(err, &sdkErr) {
		env := sdk.NewErrorEnvelope(sdkErr)
		env.Message = sdkErr.Message
		return c.Status(statusFor(sdkErr)).JSON(env)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := ErrCodeInternalError
		switch fe.Code {
		case fiber.StatusNotFound:
			code = ErrCodeNotFound
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			code = ErrCodeInvalidRequest
		case fiber.StatusMethodNotAllowed:
			code = ErrCodeMethodNotAllowed
		case fiber.StatusServiceUnavailable:
			code = ErrCodeUnavailable
		}
		return c.Status(fe.Code).JSON(errorEnvelope(code, fe.Message))
	}

	return c.Status(fiber.StatusInternalServerError).JSON(errorEnvelope(ErrCodeInternalError, err.Error()))
}

// ErrorHandler is the fiber error handler: every error leaves the gateway as
// a failure envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}
