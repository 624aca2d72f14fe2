package handler

import (
	"time"

	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type InvoiceHandler struct {
	service service.InvoiceService
}

func NewInvoiceHandler(s service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: s}
}

// CreateInvoice rings up a sale.
// POST /api/v1/invoices
func (h *InvoiceHandler) CreateInvoice(c *fiber.Ctx) error {
	var req service.CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	inv, err := h.service.CreateInvoice(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	resp := inv.ToResponse()
	if resp.Creator != nil {
		resp.Creator.Name = getUserName(c)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Invoice created", "data": resp})
}

// GetInvoices lists invoices, newest first.
// GET /api/v1/invoices?startDate=&endDate=&customerName=
func (h *InvoiceHandler) GetInvoices(c *fiber.Ctx) error {
	filter := repository.InvoiceFilter{CustomerName: c.Query("customerName")}

	if v := c.Query("startDate"); v != "" {
		start, _, err := parseDate(v)
		if err != nil {
			return badRequest(c, "Invalid startDate, use YYYY-MM-DD or RFC3339")
		}
		filter.StartDate = &start
	}
	if v := c.Query("endDate"); v != "" {
		end, dateOnly, err := parseDate(v)
		if err != nil {
			return badRequest(c, "Invalid endDate, use YYYY-MM-DD or RFC3339")
		}
		if dateOnly {
			// A bare date covers the whole day.
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return badRequest(c, "startDate must not be after endDate")
	}

	invoices, err := h.service.ListInvoices(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]model.InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = invoices[i].ToResponse()
	}
	return c.JSON(out)
}

// GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetInvoice(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid invoice ID")
	}
	inv, err := h.service.GetInvoiceByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inv.ToResponse())
}

// parseDate accepts RFC3339 timestamps and bare dates (taken as UTC midnight).
func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, v)
	return t, true, err
}
