package domain

import "github.com/shopspring/decimal"

// Product is a wholesale catalog entry. The catalog is read-only to the
// chat and checkout flows; only order placement decrements stock.
type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description,omitempty"`
	Unit        string          `db:"unit" json:"unit"` // e.g. "50kg bag", "10L jerrican"
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Active      bool            `db:"active" json:"-"`
	CreatedAt   string          `db:"created_at" json:"-"`
	UpdatedAt   string          `db:"updated_at" json:"-"`
}

// CartLine is one product in a checkout session. UnitPrice and StockAtAdd
// are snapshots taken when the line was added; quantity edits clamp to
// [1, StockAtAdd].
type CartLine struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	StockAtAdd int             `json:"stock_at_add"`
}

// LineTotal is UnitPrice * Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderIntent is a not-yet-confirmed order extracted from chat. A session
// holds at most one; writing a new one discards the old.
type OrderIntent struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total_amount"`
}

// ConversationTurn is one message in a chat session. Turns are append-only.
type ConversationTurn struct {
	ID                   string `db:"id" json:"id"`
	SessionID            string `db:"session_id" json:"-"`
	Sender               string `db:"sender" json:"sender"` // "user" | "bot"
	Text                 string `db:"text" json:"text"`
	RequiresConfirmation bool   `db:"requires_confirmation" json:"requires_confirmation"`
	CreatedAt            string `db:"created_at" json:"timestamp"`
}

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Payment methods accepted at checkout.
const (
	PaymentMpesa = "mpesa"
	PaymentCash  = "cash"
)

// Order lifecycle statuses.
const (
	OrderPending    = "pending"    // created, payment not initiated or cash on delivery
	OrderProcessing = "processing" // STK push sent, waiting for the phone prompt
	OrderPaid       = "paid"
	OrderFailed     = "failed"
	OrderDelivered  = "delivered" // cash orders, settled on handover
)
