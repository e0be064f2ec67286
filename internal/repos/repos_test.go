package repos_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"sokojumla/internal/domain"
	"sokojumla/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// one connection, or each pool conn would get its own :memory: db
	db.SetMaxOpenConns(1)
	return db
}

func TestListActiveKeepsInsertionOrder(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)

	products, err := r.ListActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 7 {
		t.Fatalf("want 7 seeded products, got %d", len(products))
	}
	if products[0].ID != "sugar-50kg" || products[6].ID != "tea-leaves-5kg" {
		t.Fatalf("order not stable: first=%s last=%s", products[0].ID, products[6].ID)
	}
}

func TestInStockExcludesEmpty(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)

	products, err := r.InStock(10)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range products {
		if p.Stock <= 0 {
			t.Fatalf("%s has no stock and should be excluded", p.ID)
		}
	}
	if len(products) != 6 {
		t.Fatalf("want 6, got %d", len(products))
	}
}

func TestDecrementStockGuard(t *testing.T) {
	db := memdb(t)
	r := repos.NewProductRepo(db)

	if err := r.DecrementStock("sugar-50kg", 4); err != nil {
		t.Fatal(err)
	}
	p, err := r.Get("sugar-50kg")
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 6 {
		t.Fatalf("want 6, got %d", p.Stock)
	}

	// cannot go negative
	err = r.DecrementStock("sugar-50kg", 7)
	if !errors.Is(err, repos.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	p, _ = r.Get("sugar-50kg")
	if p.Stock != 6 {
		t.Fatalf("failed decrement must not change stock, got %d", p.Stock)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	db := memdb(t)
	orders := repos.NewOrderRepo(db)

	total := decimal.RequireFromString("137.97")
	if err := orders.Create("ord-1", "sid-1", domain.PaymentMpesa, "254712345678", total, domain.OrderPending); err != nil {
		t.Fatal(err)
	}
	if err := orders.InsertItem("ord-1", "sugar-50kg", 3, decimal.RequireFromString("45.99")); err != nil {
		t.Fatal(err)
	}
	if err := orders.SetMpesaRefs("ord-1", "mr-1", "ws_CO_1", "0"); err != nil {
		t.Fatal(err)
	}
	if err := orders.UpdateStatus("ord-1", domain.OrderProcessing); err != nil {
		t.Fatal(err)
	}

	o, items, err := orders.Get("ord-1")
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderProcessing || !o.Total.Equal(total) {
		t.Fatalf("bad row: %+v", o)
	}
	if len(items) != 1 || items[0].Subtotal.StringFixed(2) != "137.97" {
		t.Fatalf("bad items: %+v", items)
	}

	found, err := orders.FindByCheckoutRequestID("ws_CO_1")
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != "ord-1" {
		t.Fatalf("want ord-1, got %s", found.ID)
	}

	bySession, err := orders.ListBySession("sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(bySession) != 1 {
		t.Fatalf("want 1, got %d", len(bySession))
	}
}

func TestConversationHistoryOrder(t *testing.T) {
	db := memdb(t)
	convo := repos.NewConversationRepo(db)

	turns := []domain.ConversationTurn{
		{ID: "t1", SessionID: "sid-1", Sender: domain.SenderBot, Text: "hi", CreatedAt: "2026-03-14T10:00:00Z"},
		{ID: "t2", SessionID: "sid-1", Sender: domain.SenderUser, Text: "I want 3 sugar", CreatedAt: "2026-03-14T10:00:05Z"},
		{ID: "t3", SessionID: "other", Sender: domain.SenderUser, Text: "hello", CreatedAt: "2026-03-14T10:00:06Z"},
	}
	for _, turn := range turns {
		if err := convo.Append(turn); err != nil {
			t.Fatal(err)
		}
	}

	got, err := convo.History("sid-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t2" {
		t.Fatalf("bad history: %+v", got)
	}
}
