package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "sokojumla/internal/log"
	"sokojumla/internal/repos"
	"sokojumla/internal/services"
	"sokojumla/internal/validate"
)

type ChatHandler struct {
	Sessions *services.SessionStore
	Convo    *repos.ConversationRepo
	Catalog  *services.CatalogService
}

type chatMessageRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

// Message runs one utterance through the assistant and returns the bot
// reply plus the structured outcome the SPA renders buttons from.
func (h *ChatHandler) Message(c *fiber.Ctx) error {
	sid := ensureSID(c)

	var req chatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "message is required"})
	}
	lang := validate.Language(req.Language)
	c.Locals("lang", lang)

	sess := h.Sessions.Chat(sid, lang)
	turn, out := sess.Handle(req.Message)

	applog.Info(c, "chat.message", map[string]any{"type": out.Type.String()})

	resp := fiber.Map{
		"success":               true,
		"type":                  out.Type.String(),
		"message":               turn.Text,
		"requires_confirmation": turn.RequiresConfirmation,
	}
	if out.Product != nil {
		resp["product"] = out.Product
	}
	if out.Quantity > 0 {
		resp["quantity"] = out.Quantity
	}
	if out.Available > 0 {
		resp["available_stock"] = out.Available
	}
	if !out.Total.IsZero() {
		resp["total_amount"] = out.Total
	}
	return c.JSON(resp)
}

type chatConfirmRequest struct {
	Confirmed   bool   `json:"confirmed"`
	PhoneNumber string `json:"phone_number"`
}

// Confirm accepts or cancels the pending order intent.
func (h *ChatHandler) Confirm(c *fiber.Ctx) error {
	sid := ensureSID(c)

	var req chatConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request"})
	}

	sess := h.Sessions.Chat(sid, "")
	if !req.Confirmed {
		turn := sess.Cancel()
		return c.JSON(fiber.Map{"success": true, "message": turn.Text})
	}

	intent := sess.PendingIntent()
	if intent == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "no pending order to confirm"})
	}
	if _, ok := validate.Phone(req.PhoneNumber); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "phone_number"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "enter a valid phone number"})
	}

	turn := sess.Confirm(c.Context(), req.PhoneNumber)
	confirmed := sess.PendingIntent() == nil

	if confirmed {
		applog.Audit(c, "chat.order.confirm", map[string]any{
			"product_id": intent.Product.ID,
			"quantity":   intent.Quantity,
			"total":      intent.Total,
		})
	} else {
		applog.Security(c, "chat.order.confirm.fail", nil)
	}
	return c.JSON(fiber.Map{"success": confirmed, "message": turn.Text})
}

// History returns the persisted transcript for this session.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	sid := ensureSID(c)
	turns, err := h.Convo.History(sid, 200)
	if err != nil {
		applog.Error(c, "chat.history", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "could not load history"})
	}
	return c.JSON(fiber.Map{"success": true, "turns": turns})
}

// Suggestions lists in-stock products the assistant can offer.
func (h *ChatHandler) Suggestions(c *fiber.Ctx) error {
	products, err := h.Catalog.Suggestions(10)
	if err != nil {
		applog.Error(c, "chat.suggestions", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "could not load products"})
	}
	return c.JSON(fiber.Map{"success": true, "products": products})
}
