package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type OrderRow struct {
	ID                     string          `db:"id" json:"id"`
	SessionID              string          `db:"session_id" json:"-"`
	PaymentMethod          string          `db:"payment_method" json:"payment_method"`
	Phone                  string          `db:"phone" json:"phone,omitempty"`
	Total                  decimal.Decimal `db:"total" json:"total"`
	Status                 string          `db:"status" json:"status"`
	MpesaMerchantRequestID string          `db:"mpesa_merchant_request_id" json:"-"`
	MpesaCheckoutRequestID string          `db:"mpesa_checkout_request_id" json:"-"`
	MpesaResponseCode      string          `db:"mpesa_response_code" json:"-"`
	CreatedAt              string          `db:"created_at" json:"created_at"`
}

type OrderItemRow struct {
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Qty       int             `db:"qty" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
}

func (r *OrderRepo) Create(id, sessionID, paymentMethod, phone string, total decimal.Decimal, status string) error {
	_, err := r.db.Exec(`
	  INSERT INTO orders(id, session_id, payment_method, phone, total, status, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, id, sessionID, paymentMethod, phone, total.String(), status)
	return err
}

func (r *OrderRepo) InsertItem(orderID, productID string, qty int, price decimal.Decimal) error {
	_, err := r.db.Exec(`
	  INSERT INTO order_items(order_id, product_id, qty, price)
	  VALUES(?, ?, ?, ?)
	`, orderID, productID, qty, price.String())
	return err
}

func (r *OrderRepo) Get(orderID string) (OrderRow, []OrderItemRow, error) {
	var o OrderRow
	if err := r.db.Get(&o, `
	  SELECT id, session_id, payment_method, COALESCE(phone,'') AS phone, total, status,
	         COALESCE(mpesa_merchant_request_id,'') AS mpesa_merchant_request_id,
	         COALESCE(mpesa_checkout_request_id,'') AS mpesa_checkout_request_id,
	         COALESCE(mpesa_response_code,'') AS mpesa_response_code,
	         created_at
	  FROM orders WHERE id = ?
	`, orderID); err != nil {
		return OrderRow{}, nil, err
	}

	var items []OrderItemRow
	if err := r.db.Select(&items, `
	  SELECT oi.product_id, p.name, oi.qty, oi.price, (oi.qty * oi.price) AS subtotal
	  FROM order_items oi
	  JOIN products p ON p.id = oi.product_id
	  WHERE oi.order_id = ?
	  ORDER BY p.name
	`, orderID); err != nil {
		return OrderRow{}, nil, err
	}

	return o, items, nil
}

func (r *OrderRepo) ListBySession(sessionID string) ([]OrderRow, error) {
	var out []OrderRow
	err := r.db.Select(&out, `
	  SELECT id, session_id, payment_method, COALESCE(phone,'') AS phone, total, status,
	         COALESCE(mpesa_merchant_request_id,'') AS mpesa_merchant_request_id,
	         COALESCE(mpesa_checkout_request_id,'') AS mpesa_checkout_request_id,
	         COALESCE(mpesa_response_code,'') AS mpesa_response_code,
	         created_at
	  FROM orders
	  WHERE session_id = ?
	  ORDER BY datetime(created_at) DESC
	`, sessionID)
	return out, err
}

func (r *OrderRepo) UpdateStatus(id, status string) error {
	_, err := r.db.Exec(`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// SetMpesaRefs records the Daraja correlation ids returned by an STK push.
func (r *OrderRepo) SetMpesaRefs(id, merchantReqID, checkoutReqID, responseCode string) error {
	_, err := r.db.Exec(`
	  UPDATE orders
	  SET mpesa_merchant_request_id = ?, mpesa_checkout_request_id = ?, mpesa_response_code = ?,
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, merchantReqID, checkoutReqID, responseCode, id)
	return err
}

// FindByCheckoutRequestID resolves the order a Daraja callback refers to.
func (r *OrderRepo) FindByCheckoutRequestID(checkoutReqID string) (OrderRow, error) {
	var o OrderRow
	err := r.db.Get(&o, `
	  SELECT id, session_id, payment_method, COALESCE(phone,'') AS phone, total, status,
	         COALESCE(mpesa_merchant_request_id,'') AS mpesa_merchant_request_id,
	         COALESCE(mpesa_checkout_request_id,'') AS mpesa_checkout_request_id,
	         COALESCE(mpesa_response_code,'') AS mpesa_response_code,
	         created_at
	  FROM orders WHERE mpesa_checkout_request_id = ?
	`, checkoutReqID)
	return o, err
}
