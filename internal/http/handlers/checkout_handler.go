package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"sokojumla/internal/checkout"
	applog "sokojumla/internal/log"
	"sokojumla/internal/services"
)

type CheckoutHandler struct {
	Sessions *services.SessionStore
	Catalog  *services.CatalogService
}

// state is the envelope every cart/checkout endpoint responds with, so
// the SPA re-renders from a single shape.
func (h *CheckoutHandler) state(c *fiber.Ctx, sess *checkout.Session) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"stage":      sess.Stage(),
		"lines":      sess.Lines(),
		"totals":     sess.Totals(),
		"last_error": sess.LastError(),
	})
}

// Cart returns the current cart and stage.
func (h *CheckoutHandler) Cart(c *fiber.Ctx) error {
	return h.state(c, h.Sessions.Checkout(ensureSID(c)))
}

type addLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddLine puts a product in the cart. Out-of-stock products are refused
// here; the session only clamps within the snapshot it was given.
func (h *CheckoutHandler) AddLine(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))

	var req addLineRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "product_id is required"})
	}
	p, err := h.Catalog.Get(req.ProductID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "product not found"})
	}
	if p.Stock <= 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": p.Name + " is out of stock"})
	}

	sess.AddLine(p, req.Quantity)
	applog.Info(c, "cart.add", map[string]any{"product_id": p.ID, "quantity": req.Quantity})
	return h.state(c, sess)
}

type quantityRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SetQuantity applies a quantity edit, clamped to the stock snapshot.
func (h *CheckoutHandler) SetQuantity(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))

	var req quantityRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "product_id is required"})
	}
	sess.SetQuantity(req.ProductID, req.Quantity)
	return h.state(c, sess)
}

type removeLineRequest struct {
	ProductID string `json:"product_id"`
}

func (h *CheckoutHandler) RemoveLine(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))

	var req removeLineRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "product_id is required"})
	}
	sess.RemoveLine(req.ProductID)
	return h.state(c, sess)
}

// Proceed moves the flow from cart to payment-method selection. An empty
// cart is a silent no-op, matching the disabled button in the SPA.
func (h *CheckoutHandler) Proceed(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))
	sess.ProceedToCheckout()
	return h.state(c, sess)
}

type selectMethodRequest struct {
	Method string `json:"method"`
}

// SelectMethod picks mpesa or cash. Cash submits immediately.
func (h *CheckoutHandler) SelectMethod(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))

	var req selectMethodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "method is required"})
	}

	var err error
	switch req.Method {
	case "mpesa":
		err = sess.SelectMpesa()
	case "cash":
		err = sess.SelectCash(c.Context())
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "method must be mpesa or cash"})
	}

	switch {
	case errors.Is(err, checkout.ErrBadStage):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": err.Error(), "stage": sess.Stage()})
	case errors.Is(err, checkout.ErrSubmitting):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": err.Error(), "stage": sess.Stage()})
	}

	if req.Method == "cash" {
		applog.Audit(c, "checkout.cash", map[string]any{"stage": string(sess.Stage())})
	}
	return h.state(c, sess)
}

type submitPhoneRequest struct {
	Phone string `json:"phone"`
}

// SubmitPhone validates the M-Pesa number and triggers the STK push.
func (h *CheckoutHandler) SubmitPhone(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))

	var req submitPhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "phone is required"})
	}

	err := sess.SubmitPhone(c.Context(), req.Phone)
	switch {
	case errors.Is(err, checkout.ErrInvalidPhone):
		applog.Security(c, "validation.fail", map[string]any{"field": "phone"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "enter a valid phone number", "stage": sess.Stage()})
	case errors.Is(err, checkout.ErrBadStage), errors.Is(err, checkout.ErrSubmitting):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": err.Error(), "stage": sess.Stage()})
	}

	applog.Audit(c, "checkout.mpesa", map[string]any{"stage": string(sess.Stage())})
	return h.state(c, sess)
}

// Back steps one stage backwards along the path taken.
func (h *CheckoutHandler) Back(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))
	sess.Back()
	return h.state(c, sess)
}

// Close resets the flow to the cart stage.
func (h *CheckoutHandler) Close(c *fiber.Ctx) error {
	sess := h.Sessions.Checkout(ensureSID(c))
	sess.Close()
	return h.state(c, sess)
}
