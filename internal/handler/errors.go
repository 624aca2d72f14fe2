package handler

import (
	"errors"

	"go-pos-invoice/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error onto a status code and the common
// {"error", "code", ...details} body.
func respondError(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error(), "code": service.ErrorCode(err)}

	var (
		invalidItem  *service.InvalidLineItemError
		failedField  *service.ValidationFailedError
		notFound     *service.ProductNotFoundError
		insufficient *service.InsufficientStockError
		persistence  *service.PersistenceError
	)
	switch {
	case errors.As(err, &invalidItem):
		if invalidItem.Index >= 0 {
			body["index"] = invalidItem.Index
		}
		body["reason"] = invalidItem.Reason
	case errors.As(err, &failedField):
		body["field"] = failedField.Field
		body["tag"] = failedField.Tag
	case errors.As(err, &notFound):
		body["product_id"] = notFound.ProductID
	case errors.As(err, &insufficient):
		body["product_id"] = insufficient.ProductID
		body["available"] = insufficient.Available
	case errors.As(err, &persistence):
		// Storage details stay in the logs.
		body["error"] = "Service temporarily unavailable, please retry"
		body["retryable"] = persistence.Retryable()
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrPersistence):
		status = fiber.StatusServiceUnavailable
	}
	if body["code"] == "" {
		body["code"] = "INTERNAL"
		body["error"] = "Internal Server Error"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": "INVALID_REQUEST"})
}
