package handler

import (
	"go-pos-invoice/internal/middleware"
	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Helper to read the user info set by the auth middleware
func getUserID(c *fiber.Ctx) uuid.UUID {
	userID, _ := c.Locals(middleware.LocalUserID).(string)
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func getUserName(c *fiber.Ctx) string {
	userName, ok := c.Locals(middleware.LocalUserName).(string)
	if !ok {
		return "Unknown"
	}
	return userName
}

// actorFrom builds the acting identity handed to the invoice core.
func actorFrom(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:                getUserID(c),
		Name:              getUserName(c),
		MayCreateInvoices: middleware.HasPrivilege(c, model.PrivilegeInvoiceCreate),
	}
}
