// FILE: internal/pkg/serverutils/response.go
package serverutils

import (
	"errors"
	"strconv"

	"support-chat-be/internal/dto"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) APIResponse[T] {
	return APIResponse[T]{
		Message: message,
		Data:    data,
	}
}

func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandlerMiddleware converts service errors into HTTP responses.
// Admission denials map to 429 with the full limit payload; everything else
// falls through to a generic error body.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var rateErr *dto.RateLimitExceededError
		if errors.As(err, &rateErr) {
			ctx.Set("Retry-After", formatSeconds(rateErr.RetryAfter))
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests",
				"error":   "rate_limit_exceeded",
				"details": rateErr,
			})
		}

		var budgetErr *dto.BudgetExceededError
		if errors.As(err, &budgetErr) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Token budget exceeded",
				"error":   "budget_exceeded",
				"details": budgetErr,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}

func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return strconv.Itoa(s)
}
