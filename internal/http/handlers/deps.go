package handlers

import (
	"github.com/jmoiron/sqlx"

	"sokojumla/internal/config"
	"sokojumla/internal/mpesa"
	"sokojumla/internal/repos"
	"sokojumla/internal/services"
)

type Deps struct {
	ProductHandler  *ProductHandler
	ChatHandler     *ChatHandler
	CheckoutHandler *CheckoutHandler
	OrderHandler    *OrderHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, payments services.PaymentInitiator) *Deps {
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	convoRepo := repos.NewConversationRepo(db)

	if payments == nil {
		payments = mpesa.New(cfg.Mpesa)
	}

	catalogSvc := services.NewCatalogService(prodRepo)
	orderSvc := services.NewOrderService(prodRepo, orderRepo, payments)
	sessions := services.NewSessionStore(cfg.Pricing, catalogSvc, orderSvc, convoRepo)

	return &Deps{
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		ChatHandler:     &ChatHandler{Sessions: sessions, Convo: convoRepo, Catalog: catalogSvc},
		CheckoutHandler: &CheckoutHandler{Sessions: sessions, Catalog: catalogSvc},
		OrderHandler:    &OrderHandler{Repo: orderRepo, Orders: orderSvc, Sessions: sessions},
	}
}
