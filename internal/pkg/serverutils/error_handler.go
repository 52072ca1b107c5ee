package serverutils

import (
	"errors"

	"move-quote-be/pkg/intake/intakeerr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON
// envelope. Intake error codes pick the HTTP status.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		status, body := errorBody(err)
		return c.Status(status).JSON(body)
	}
}

func errorBody(err error) (int, *Response) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, ErrorResponseWithData(fiber.StatusBadRequest, "Validation failed", verr.Fields)
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ferr.Code, ErrorResponse(ferr.Code, ferr.Message)
	}

	if intakeerr.IsTyped(err) {
		code, msg := intakeerr.Describe(err)
		status := StatusFor(code)
		r := ErrorResponse(status, msg)
		if missing := intakeerr.MissingFields(err); len(missing) > 0 {
			r.Data = fiber.Map{"code": code, "missing_fields": missing}
		} else {
			r.Data = fiber.Map{"code": code}
		}
		return status, r
	}

	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, "Internal server error")
}

func StatusFor(code intakeerr.Code) int {
	switch code {
	case intakeerr.CodeInvalidSession:
		return fiber.StatusUnauthorized
	case intakeerr.CodeMalformedMessage:
		return fiber.StatusBadRequest
	case intakeerr.CodeIncompleteFields, intakeerr.CodeContactRequired:
		return fiber.StatusUnprocessableEntity
	case intakeerr.CodeSubflowBusy, intakeerr.CodeRecognitionPending:
		return fiber.StatusConflict
	case intakeerr.CodeUnresolvedAddress:
		return fiber.StatusNotFound
	case intakeerr.CodeCollaboratorUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
