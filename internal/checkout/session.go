// Package checkout owns the cart lines and the payment flow state machine:
// Cart -> PaymentMethodSelection -> {MpesaDetails, CashConfirm} -> Success.
package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"sokojumla/internal/config"
	"sokojumla/internal/domain"
	"sokojumla/internal/validate"
)

type Stage string

const (
	StageCart          Stage = "cart"
	StagePaymentMethod Stage = "payment_method"
	StageMpesa         Stage = "mpesa"
	StageCashConfirm   Stage = "cash_confirm"
	StageSuccess       Stage = "success"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrBadStage     = errors.New("action not allowed in current stage")
	ErrInvalidPhone = errors.New("invalid phone")
	ErrSubmitting   = errors.New("submission already in progress")
)

// SubmitResult is what the external order collaborator reports back.
type SubmitResult struct {
	Success bool
	OrderID string
	Message string
}

// Submitter is the external order-submission boundary. Each transition
// attempt calls it exactly once; the session never retries on its own.
type Submitter interface {
	SubmitMpesa(ctx context.Context, phone string, amount decimal.Decimal, lines []domain.CartLine) (SubmitResult, error)
	SubmitCash(ctx context.Context, amount decimal.Decimal, lines []domain.CartLine) (SubmitResult, error)
}

// Session is one user's cart and checkout state. Not persisted: closing the
// process discards it. Safe for concurrent handler calls; the submitting
// flag rejects a duplicate submission while one is outstanding.
type Session struct {
	mu         sync.Mutex
	lines      []domain.CartLine
	stage      Stage
	back       []Stage
	phone      string
	lastError  string
	submitting bool
	succeeded  bool

	pricing config.Pricing
	submit  Submitter
}

func NewSession(pricing config.Pricing, submit Submitter) *Session {
	return &Session{stage: StageCart, pricing: pricing, submit: submit}
}

// Breakdown is the derived money view of the cart. Always recomputed from
// the lines, never stored.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Totals computes the breakdown for a set of lines. Shipping is free only
// when the subtotal strictly exceeds the threshold.
func Totals(lines []domain.CartLine, p config.Pricing) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	tax := subtotal.Mul(p.TaxRate)
	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// ---------- cart line operations ----------

// AddLine puts a product in the cart, snapshotting its price and stock.
// Adding a product already present bumps its quantity instead, still
// clamped to the stock snapshot.
func (s *Session) AddLine(p domain.Product, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qty < 1 {
		qty = 1
	}
	for i := range s.lines {
		if s.lines[i].ProductID == p.ID {
			s.lines[i].Quantity = clamp(s.lines[i].Quantity+qty, 1, s.lines[i].StockAtAdd)
			return
		}
	}
	s.lines = append(s.lines, domain.CartLine{
		ProductID:  p.ID,
		Name:       p.Name,
		UnitPrice:  p.Price,
		Quantity:   clamp(qty, 1, p.Stock),
		StockAtAdd: p.Stock,
	})
}

// SetQuantity applies a +/- edit, clamped to [1, stockAtAdd].
func (s *Session) SetQuantity(productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity = clamp(qty, 1, s.lines[i].StockAtAdd)
			return
		}
	}
}

func (s *Session) RemoveLine(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

func (s *Session) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Session) Totals() Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Totals(s.lines, s.pricing)
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ---------- transitions ----------

// ProceedToCheckout moves Cart -> PaymentMethodSelection. With an empty
// cart it is a silent no-op: the UI disables the action rather than
// surfacing an error.
func (s *Session) ProceedToCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageCart || len(s.lines) == 0 {
		return
	}
	s.push(StagePaymentMethod)
}

func (s *Session) SelectMpesa() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StagePaymentMethod {
		return ErrBadStage
	}
	s.lastError = ""
	s.push(StageMpesa)
	return nil
}

// SelectCash passes straight through CashConfirm: entering it triggers the
// external submission immediately. On failure the session reverts to
// PaymentMethodSelection; cash has no stored input to retry with.
func (s *Session) SelectCash(ctx context.Context) error {
	s.mu.Lock()
	if s.stage != StagePaymentMethod {
		s.mu.Unlock()
		return ErrBadStage
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitting
	}
	s.submitting = true
	s.lastError = ""
	s.push(StageCashConfirm)
	amount := Totals(s.lines, s.pricing).Total
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	s.mu.Unlock()

	res, err := s.submit.SubmitCash(ctx, amount, lines)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil || !res.Success {
		s.lastError = failureMessage(res, err, "Order failed. Please try again.")
		// revert the pass-through step
		s.pop()
		return nil
	}
	s.stage = StageSuccess
	s.back = nil
	s.succeeded = true
	return nil
}

// SubmitPhone validates the M-Pesa number and, if valid, makes exactly one
// submission attempt. Validation failure sets lastError without any
// external call; submission failure keeps the session in MpesaDetails.
func (s *Session) SubmitPhone(ctx context.Context, phone string) error {
	s.mu.Lock()
	if s.stage != StageMpesa {
		s.mu.Unlock()
		return ErrBadStage
	}
	cleaned, ok := validate.Phone(phone)
	if !ok {
		s.lastError = "invalid phone"
		s.mu.Unlock()
		return ErrInvalidPhone
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitting
	}
	s.submitting = true
	s.lastError = ""
	s.phone = cleaned
	amount := Totals(s.lines, s.pricing).Total
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	s.mu.Unlock()

	res, err := s.submit.SubmitMpesa(ctx, cleaned, amount, lines)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil || !res.Success {
		s.lastError = failureMessage(res, err, "Payment failed. Please try again.")
		return nil
	}
	s.stage = StageSuccess
	s.back = nil
	s.succeeded = true
	return nil
}

// Back returns one step along the path taken. Cart and Success have no
// back transition.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage == StageCart || s.stage == StageSuccess || s.submitting {
		return
	}
	s.lastError = ""
	s.pop()
}

// Close resets the flow to Cart and clears phone/error state. Lines
// survive unless the checkout already succeeded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = StageCart
	s.back = nil
	s.phone = ""
	s.lastError = ""
	if s.succeeded {
		s.lines = nil
		s.succeeded = false
	}
}

func (s *Session) push(next Stage) {
	s.back = append(s.back, s.stage)
	s.stage = next
}

func (s *Session) pop() {
	if n := len(s.back); n > 0 {
		s.stage = s.back[n-1]
		s.back = s.back[:n-1]
	} else {
		s.stage = StageCart
	}
}

func failureMessage(res SubmitResult, err error, fallback string) string {
	if res.Message != "" {
		return res.Message
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
