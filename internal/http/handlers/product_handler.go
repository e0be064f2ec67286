package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "sokojumla/internal/log"
	"sokojumla/internal/services"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// List returns the active catalog in stable order.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.Catalog.ActiveProducts()
	if err != nil {
		applog.Error(c, "products.list", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "could not load products"})
	}
	return c.JSON(fiber.Map{"success": true, "products": products})
}

// Suggestions returns up to ten in-stock products.
func (h *ProductHandler) Suggestions(c *fiber.Ctx) error {
	products, err := h.Catalog.Suggestions(c.QueryInt("limit", 10))
	if err != nil {
		applog.Error(c, "products.suggestions", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "could not load products"})
	}
	return c.JSON(fiber.Map{"success": true, "products": products})
}
