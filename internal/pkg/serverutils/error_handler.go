package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// NotFoundError is returned by services for missing or foreign resources.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ErrorHandlerMiddleware renders errors returned by handlers as ErrorResponse bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var (
			fe  *fiber.Error
			ve  *ValidationError
			nfe *NotFoundError
		)
		switch {
		case errors.As(err, &ve):
			res := ErrorResponse(fiber.StatusBadRequest, ve.Error())
			res.Data = ve.Fields
			return ctx.Status(fiber.StatusBadRequest).JSON(res)
		case errors.As(err, &nfe):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(fiber.StatusNotFound, nfe.Error()))
		case errors.As(err, &fe):
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
		}
	}
}
