package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"sokojumla/internal/config"
	"sokojumla/internal/http/handlers"
	applog "sokojumla/internal/log"
	"sokojumla/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			// Avoid leaking internals
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Something went wrong. Please try again.",
			})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowCredentials: true,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg, nil)
	api := app.Group("/api/v1")

	// Catalog
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/suggestions", deps.ProductHandler.Suggestions)

	// Chat assistant (message throttled per IP)
	chatLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|chat"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.chat.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "message": "rate limit exceeded, retry soon"})
		},
	})
	api.Post("/chat/message", chatLimiter, deps.ChatHandler.Message)
	api.Post("/chat/confirm", deps.ChatHandler.Confirm)
	api.Get("/chat/history", deps.ChatHandler.History)
	api.Get("/chat/suggestions", deps.ChatHandler.Suggestions)

	// Cart & checkout flow
	api.Get("/cart", deps.CheckoutHandler.Cart)
	api.Post("/cart", deps.CheckoutHandler.AddLine)
	api.Post("/cart/quantity", deps.CheckoutHandler.SetQuantity)
	api.Post("/cart/remove", deps.CheckoutHandler.RemoveLine)
	api.Post("/checkout/proceed", deps.CheckoutHandler.Proceed)
	api.Post("/checkout/select-method", deps.CheckoutHandler.SelectMethod)
	api.Post("/checkout/submit-phone", deps.CheckoutHandler.SubmitPhone)
	api.Post("/checkout/back", deps.CheckoutHandler.Back)
	api.Post("/checkout/close", deps.CheckoutHandler.Close)

	// Orders & payments
	api.Post("/orders/mpesa-stk-push", deps.OrderHandler.MpesaSTKPush)
	api.Post("/orders/cash-on-delivery", deps.OrderHandler.CashOnDelivery)
	api.Post("/mpesa/callback", deps.OrderHandler.Callback)
	api.Get("/orders", deps.OrderHandler.List)
	api.Get("/orders/:id", deps.OrderHandler.Get)
	api.Post("/orders/:id/delivered", deps.OrderHandler.MarkDelivered)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
