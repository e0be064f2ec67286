package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sokojumla/internal/chat"
	"sokojumla/internal/checkout"
	"sokojumla/internal/domain"
	"sokojumla/internal/mpesa"
	"sokojumla/internal/repos"
	"sokojumla/internal/validate"
)

var (
	ErrPhoneRequired = errors.New("phone number required")
	ErrNoLines       = errors.New("order has no lines")
)

// PaymentInitiator is the Daraja boundary, abstracted so tests can fake it.
// *mpesa.Client satisfies it.
type PaymentInitiator interface {
	STKPush(ctx context.Context, phone string, amount decimal.Decimal, accountRef, desc string) (*mpesa.STKResponse, error)
}

// OrderService turns confirmed intents and checkout carts into persisted
// orders, initiating payment where the method requires it. Every entry
// point makes at most one payment call; retries are the caller's choice.
type OrderService struct {
	Prods    *repos.ProductRepo
	Orders   *repos.OrderRepo
	Payments PaymentInitiator
}

func NewOrderService(prods *repos.ProductRepo, orders *repos.OrderRepo, payments PaymentInitiator) *OrderService {
	return &OrderService{Prods: prods, Orders: orders, Payments: payments}
}

// ConfirmIntent places a single-product order from the chat assistant:
// re-check stock, persist the order, send the STK push, then decrement
// stock. A failed push leaves the order row behind with status failed so
// the attempt is auditable; stock is untouched.
func (s *OrderService) ConfirmIntent(ctx context.Context, sessionID, phone string, intent domain.OrderIntent) (chat.Receipt, error) {
	wirePhone := validate.NormalizePhone254(phone)
	if wirePhone == "" {
		return chat.Receipt{Message: "Please provide a valid phone number (e.g. 0712345678)."}, ErrPhoneRequired
	}

	p, err := s.Prods.Get(intent.Product.ID)
	if err != nil {
		return chat.Receipt{Message: "Product not found."}, err
	}
	if p.Stock < intent.Quantity {
		return chat.Receipt{
			Message: fmt.Sprintf("Sorry, only %d units of %s are available now.", p.Stock, p.Name),
		}, repos.ErrInsufficientStock
	}

	orderID := uuid.NewString()
	if err := s.Orders.Create(orderID, sessionID, domain.PaymentMpesa, wirePhone, intent.Total, domain.OrderPending); err != nil {
		return chat.Receipt{}, err
	}
	if err := s.Orders.InsertItem(orderID, p.ID, intent.Quantity, p.Price); err != nil {
		return chat.Receipt{}, err
	}

	ref := "CHAT-" + shortID(orderID)
	desc := fmt.Sprintf("Order %s - %s", shortID(orderID), p.Name)
	stk, err := s.Payments.STKPush(ctx, wirePhone, intent.Total, ref, desc)
	if err != nil {
		_ = s.Orders.UpdateStatus(orderID, domain.OrderFailed)
		return chat.Receipt{Message: "Payment processing failed. Please try again."}, err
	}

	_ = s.Orders.SetMpesaRefs(orderID, stk.MerchantRequestID, stk.CheckoutRequestID, stk.ResponseCode)
	if stk.Accepted() {
		_ = s.Orders.UpdateStatus(orderID, domain.OrderProcessing)
	}
	if err := s.Prods.DecrementStock(p.ID, intent.Quantity); err != nil {
		return chat.Receipt{}, err
	}

	return chat.Receipt{OrderID: orderID, Message: stk.CustomerMessage}, nil
}

// PlaceMpesa places a multi-line checkout order paid via M-Pesa.
func (s *OrderService) PlaceMpesa(ctx context.Context, sessionID, phone string, amount decimal.Decimal, lines []domain.CartLine) (checkout.SubmitResult, error) {
	if len(lines) == 0 {
		return checkout.SubmitResult{Message: "Your cart is empty."}, ErrNoLines
	}
	wirePhone := validate.NormalizePhone254(phone)
	if wirePhone == "" {
		return checkout.SubmitResult{Message: "Please enter a valid phone number."}, ErrPhoneRequired
	}
	if err := s.checkStock(lines); err != nil {
		return checkout.SubmitResult{Message: err.Error()}, err
	}

	orderID := uuid.NewString()
	if err := s.persistOrder(orderID, sessionID, domain.PaymentMpesa, wirePhone, amount, lines); err != nil {
		return checkout.SubmitResult{}, err
	}

	ref := "SOKO-" + shortID(orderID)
	stk, err := s.Payments.STKPush(ctx, wirePhone, amount, ref, "Wholesale order "+shortID(orderID))
	if err != nil {
		_ = s.Orders.UpdateStatus(orderID, domain.OrderFailed)
		return checkout.SubmitResult{Message: "M-Pesa payment failed. Please try again."}, nil
	}

	_ = s.Orders.SetMpesaRefs(orderID, stk.MerchantRequestID, stk.CheckoutRequestID, stk.ResponseCode)
	if stk.Accepted() {
		_ = s.Orders.UpdateStatus(orderID, domain.OrderProcessing)
	}
	if err := s.decrementStock(lines); err != nil {
		return checkout.SubmitResult{}, err
	}

	return checkout.SubmitResult{Success: true, OrderID: orderID, Message: stk.CustomerMessage}, nil
}

// PlaceCash places a cash-on-delivery order. No payment call is made; the
// order stays pending until delivery.
func (s *OrderService) PlaceCash(ctx context.Context, sessionID string, amount decimal.Decimal, lines []domain.CartLine) (checkout.SubmitResult, error) {
	if len(lines) == 0 {
		return checkout.SubmitResult{Message: "Your cart is empty."}, ErrNoLines
	}
	if err := s.checkStock(lines); err != nil {
		return checkout.SubmitResult{Message: err.Error()}, err
	}

	orderID := uuid.NewString()
	if err := s.persistOrder(orderID, sessionID, domain.PaymentCash, "", amount, lines); err != nil {
		return checkout.SubmitResult{}, err
	}
	if err := s.decrementStock(lines); err != nil {
		return checkout.SubmitResult{}, err
	}

	return checkout.SubmitResult{Success: true, OrderID: orderID}, nil
}

// MarkDelivered settles a cash order on handover. Only pending cash
// orders can be delivered.
func (s *OrderService) MarkDelivered(orderID string) error {
	o, _, err := s.Orders.Get(orderID)
	if err != nil {
		return err
	}
	if o.PaymentMethod != domain.PaymentCash || o.Status != domain.OrderPending {
		return fmt.Errorf("order %s is not a pending cash order", shortID(orderID))
	}
	return s.Orders.UpdateStatus(orderID, domain.OrderDelivered)
}

// MarkCallback applies a Daraja payment callback to the matching order.
func (s *OrderService) MarkCallback(checkoutReqID string, resultCode int) error {
	o, err := s.Orders.FindByCheckoutRequestID(checkoutReqID)
	if err != nil {
		return err
	}
	status := domain.OrderPaid
	if resultCode != 0 {
		status = domain.OrderFailed
	}
	return s.Orders.UpdateStatus(o.ID, status)
}

func (s *OrderService) checkStock(lines []domain.CartLine) error {
	for _, l := range lines {
		p, err := s.Prods.Get(l.ProductID)
		if err != nil {
			return fmt.Errorf("product %s not found", l.ProductID)
		}
		if p.Stock < l.Quantity {
			return fmt.Errorf("insufficient stock for %s (need %d, have %d)", p.Name, l.Quantity, p.Stock)
		}
	}
	return nil
}

func (s *OrderService) persistOrder(orderID, sessionID, method, phone string, amount decimal.Decimal, lines []domain.CartLine) error {
	if err := s.Orders.Create(orderID, sessionID, method, phone, amount, domain.OrderPending); err != nil {
		return err
	}
	for _, l := range lines {
		if err := s.Orders.InsertItem(orderID, l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) decrementStock(lines []domain.CartLine) error {
	for _, l := range lines {
		if err := s.Prods.DecrementStock(l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CheckoutSubmitter adapts OrderService to the checkout session's
// submission boundary, binding the session id.
type CheckoutSubmitter struct {
	Orders    *OrderService
	SessionID string
}

func (cs CheckoutSubmitter) SubmitMpesa(ctx context.Context, phone string, amount decimal.Decimal, lines []domain.CartLine) (checkout.SubmitResult, error) {
	return cs.Orders.PlaceMpesa(ctx, cs.SessionID, phone, amount, lines)
}

func (cs CheckoutSubmitter) SubmitCash(ctx context.Context, amount decimal.Decimal, lines []domain.CartLine) (checkout.SubmitResult, error) {
	return cs.Orders.PlaceCash(ctx, cs.SessionID, amount, lines)
}
