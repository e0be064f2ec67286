package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "sokojumla/internal/log"
	"sokojumla/internal/mpesa"
	"sokojumla/internal/repos"
	"sokojumla/internal/services"
)

type OrderHandler struct {
	Repo     *repos.OrderRepo
	Orders   *services.OrderService
	Sessions *services.SessionStore
}

type stkPushRequest struct {
	Phone string `json:"phone"`
}

// MpesaSTKPush places the current cart as an M-Pesa order directly,
// without walking the checkout stages. On success the cart is emptied.
func (h *OrderHandler) MpesaSTKPush(c *fiber.Ctx) error {
	sid := ensureSID(c)
	sess := h.Sessions.Checkout(sid)

	var req stkPushRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "phone is required"})
	}

	lines := sess.Lines()
	res, err := h.Orders.PlaceMpesa(c.Context(), sid, req.Phone, sess.Totals().Total, lines)
	if err != nil || !res.Success {
		applog.Security(c, "orders.mpesa.fail", map[string]any{"reason": res.Message})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": res.Message})
	}

	for _, l := range lines {
		sess.RemoveLine(l.ProductID)
	}
	applog.Audit(c, "orders.mpesa", map[string]any{"order_id": res.OrderID})
	return c.JSON(fiber.Map{"success": true, "order_id": res.OrderID, "message": res.Message})
}

// CashOnDelivery places the current cart as a cash order.
func (h *OrderHandler) CashOnDelivery(c *fiber.Ctx) error {
	sid := ensureSID(c)
	sess := h.Sessions.Checkout(sid)

	lines := sess.Lines()
	res, err := h.Orders.PlaceCash(c.Context(), sid, sess.Totals().Total, lines)
	if err != nil || !res.Success {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": res.Message})
	}

	for _, l := range lines {
		sess.RemoveLine(l.ProductID)
	}
	applog.Audit(c, "orders.cash", map[string]any{"order_id": res.OrderID})
	return c.JSON(fiber.Map{"success": true, "order_id": res.OrderID})
}

// Callback receives the Daraja payment result. Always acked with code 0;
// Daraja retries anything else.
func (h *OrderHandler) Callback(c *fiber.Ctx) error {
	var cb mpesa.Callback
	if err := c.BodyParser(&cb); err != nil {
		applog.Security(c, "mpesa.callback.bad", nil)
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	stk := cb.Body.StkCallback
	if err := h.Orders.MarkCallback(stk.CheckoutRequestID, stk.ResultCode); err != nil {
		applog.Error(c, "mpesa.callback", err, map[string]any{"checkout_request_id": stk.CheckoutRequestID})
	} else {
		applog.Audit(c, "mpesa.callback", map[string]any{
			"checkout_request_id": stk.CheckoutRequestID,
			"result_code":         stk.ResultCode,
		})
	}
	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// MarkDelivered lets the buyer confirm receipt of their cash order.
func (h *OrderHandler) MarkDelivered(c *fiber.Ctx) error {
	sid := ensureSID(c)
	order, _, err := h.Repo.Get(c.Params("id"))
	if err != nil || order.SessionID != sid {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "order not found"})
	}
	if err := h.Orders.MarkDelivered(order.ID); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": err.Error()})
	}
	applog.Audit(c, "orders.delivered", map[string]any{"order_id": order.ID})
	return c.JSON(fiber.Map{"success": true})
}

// List returns this session's orders, newest first.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.Repo.ListBySession(ensureSID(c))
	if err != nil {
		applog.Error(c, "orders.list", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "could not load orders"})
	}
	return c.JSON(fiber.Map{"success": true, "orders": orders})
}

// Get returns one of this session's orders with its items.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	sid := ensureSID(c)
	order, items, err := h.Repo.Get(c.Params("id"))
	if err != nil || order.SessionID != sid {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "order not found"})
	}
	return c.JSON(fiber.Map{"success": true, "order": order, "items": items})
}
