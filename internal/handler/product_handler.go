package handler

import (
	"go-pos-invoice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProductHandler struct {
	catalog service.CatalogService
}

func NewProductHandler(catalog service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// GET /api/v1/products?keyword=&pageNumber=
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	page, err := h.catalog.SearchProducts(c.UserContext(), c.Query("keyword"), c.QueryInt("pageNumber", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid product ID")
	}
	product, err := h.catalog.GetProductByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}
