package checkout_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"sokojumla/internal/checkout"
	"sokojumla/internal/config"
	"sokojumla/internal/domain"
)

func pricing() config.Pricing {
	return config.Pricing{
		TaxRate:          decimal.RequireFromString("0.16"),
		FreeShippingOver: decimal.RequireFromString("50"),
		ShippingFee:      decimal.RequireFromString("5.99"),
	}
}

func sugar() domain.Product {
	return domain.Product{ID: "sugar-50kg", Name: "Sugar 50kg", Price: decimal.RequireFromString("45.99"), Stock: 10}
}

type fakeSubmitter struct {
	res        checkout.SubmitResult
	err        error
	mpesaCalls int
	cashCalls  int

	entered chan struct{} // optional: closed-over signalling for concurrency tests
	release chan struct{}
}

func (f *fakeSubmitter) SubmitMpesa(ctx context.Context, phone string, amount decimal.Decimal, lines []domain.CartLine) (checkout.SubmitResult, error) {
	f.mpesaCalls++
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	return f.res, f.err
}

func (f *fakeSubmitter) SubmitCash(ctx context.Context, amount decimal.Decimal, lines []domain.CartLine) (checkout.SubmitResult, error) {
	f.cashCalls++
	return f.res, f.err
}

func eq(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestTotalsBelowThreshold(t *testing.T) {
	lines := []domain.CartLine{
		{ProductID: "a", UnitPrice: decimal.RequireFromString("40"), Quantity: 1, StockAtAdd: 5},
	}
	b := checkout.Totals(lines, pricing())
	eq(t, b.Subtotal, "40")
	eq(t, b.Tax, "6.40")
	eq(t, b.Shipping, "5.99")
	eq(t, b.Total, "52.39")
}

func TestTotalsThresholdIsStrict(t *testing.T) {
	at := []domain.CartLine{{ProductID: "a", UnitPrice: decimal.RequireFromString("50"), Quantity: 1, StockAtAdd: 5}}
	b := checkout.Totals(at, pricing())
	eq(t, b.Shipping, "5.99")

	over := []domain.CartLine{{ProductID: "a", UnitPrice: decimal.RequireFromString("50.01"), Quantity: 1, StockAtAdd: 5}}
	b = checkout.Totals(over, pricing())
	eq(t, b.Shipping, "0")
}

func TestTotalsIdempotent(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.AddLine(sugar(), 2)
	first := s.Totals()
	second := s.Totals()
	if !first.Total.Equal(second.Total) {
		t.Fatalf("totals drifted: %s vs %s", first.Total, second.Total)
	}
	eq(t, first.Subtotal, "91.98")
}

func TestAddLineMergesAndClamps(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.AddLine(sugar(), 3)
	s.AddLine(sugar(), 100)
	lines := s.Lines()
	if len(lines) != 1 {
		t.Fatalf("want one merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 10 {
		t.Fatalf("want clamp to stock 10, got %d", lines[0].Quantity)
	}
}

func TestSetQuantityClamps(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.AddLine(sugar(), 3)

	s.SetQuantity("sugar-50kg", 0)
	if got := s.Lines()[0].Quantity; got != 1 {
		t.Fatalf("want floor 1, got %d", got)
	}
	s.SetQuantity("sugar-50kg", 99)
	if got := s.Lines()[0].Quantity; got != 10 {
		t.Fatalf("want ceiling 10, got %d", got)
	}
	s.SetQuantity("unknown", 5) // no-op
	if len(s.Lines()) != 1 {
		t.Fatal("unknown product edit should not add a line")
	}
}

func TestRemoveLine(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.AddLine(sugar(), 1)
	s.RemoveLine("sugar-50kg")
	if len(s.Lines()) != 0 {
		t.Fatal("line should be gone")
	}
}

func TestProceedWithEmptyCartIsNoop(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.ProceedToCheckout()
	if s.Stage() != checkout.StageCart {
		t.Fatalf("want cart, got %s", s.Stage())
	}
}

func TestMpesaHappyPath(t *testing.T) {
	sub := &fakeSubmitter{res: checkout.SubmitResult{Success: true, OrderID: "ord-1"}}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 2)

	s.ProceedToCheckout()
	if s.Stage() != checkout.StagePaymentMethod {
		t.Fatalf("want payment_method, got %s", s.Stage())
	}
	if err := s.SelectMpesa(); err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StageMpesa {
		t.Fatalf("want mpesa, got %s", s.Stage())
	}
	if err := s.SubmitPhone(context.Background(), "0712345678"); err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StageSuccess {
		t.Fatalf("want success, got %s", s.Stage())
	}
	if sub.mpesaCalls != 1 {
		t.Fatalf("want one submission, got %d", sub.mpesaCalls)
	}
}

func TestInvalidPhoneBlocksWithoutSubmitting(t *testing.T) {
	sub := &fakeSubmitter{res: checkout.SubmitResult{Success: true}}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 1)
	s.ProceedToCheckout()
	_ = s.SelectMpesa()

	err := s.SubmitPhone(context.Background(), "12345")
	if !errors.Is(err, checkout.ErrInvalidPhone) {
		t.Fatalf("want ErrInvalidPhone, got %v", err)
	}
	if sub.mpesaCalls != 0 {
		t.Fatal("submitter must not be called for an invalid phone")
	}
	if s.Stage() != checkout.StageMpesa {
		t.Fatalf("stage should stay mpesa, got %s", s.Stage())
	}
	if s.LastError() == "" {
		t.Fatal("lastError should be set")
	}
}

func TestMpesaFailureStaysOnPhoneStage(t *testing.T) {
	sub := &fakeSubmitter{res: checkout.SubmitResult{Message: "M-Pesa payment failed. Please try again."}}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 1)
	s.ProceedToCheckout()
	_ = s.SelectMpesa()

	if err := s.SubmitPhone(context.Background(), "0712345678"); err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StageMpesa {
		t.Fatalf("failed submit should stay on mpesa, got %s", s.Stage())
	}
	if s.LastError() != "M-Pesa payment failed. Please try again." {
		t.Fatalf("lastError not surfaced: %q", s.LastError())
	}

	// retry succeeds
	sub.res = checkout.SubmitResult{Success: true}
	if err := s.SubmitPhone(context.Background(), "0712345678"); err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StageSuccess {
		t.Fatalf("want success after retry, got %s", s.Stage())
	}
}

func TestCashFailureRevertsToPaymentMethod(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("db down")}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 1)
	s.ProceedToCheckout()

	if err := s.SelectCash(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StagePaymentMethod {
		t.Fatalf("cash failure should revert to payment_method, got %s", s.Stage())
	}
	if s.LastError() == "" {
		t.Fatal("lastError should be set")
	}
}

func TestCashHappyPath(t *testing.T) {
	sub := &fakeSubmitter{res: checkout.SubmitResult{Success: true, OrderID: "ord-2"}}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 1)
	s.ProceedToCheckout()

	if err := s.SelectCash(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StageSuccess {
		t.Fatalf("want success, got %s", s.Stage())
	}
	if sub.cashCalls != 1 {
		t.Fatalf("want one submission, got %d", sub.cashCalls)
	}
}

func TestBackWalksThePathTaken(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.AddLine(sugar(), 1)
	s.Back() // no-op on cart
	if s.Stage() != checkout.StageCart {
		t.Fatalf("back on cart should be a no-op, got %s", s.Stage())
	}

	s.ProceedToCheckout()
	_ = s.SelectMpesa()
	s.Back()
	if s.Stage() != checkout.StagePaymentMethod {
		t.Fatalf("want payment_method, got %s", s.Stage())
	}
	s.Back()
	if s.Stage() != checkout.StageCart {
		t.Fatalf("want cart, got %s", s.Stage())
	}
}

func TestStageGuards(t *testing.T) {
	s := checkout.NewSession(pricing(), &fakeSubmitter{})
	s.AddLine(sugar(), 1)

	if err := s.SelectMpesa(); !errors.Is(err, checkout.ErrBadStage) {
		t.Fatalf("select from cart: want ErrBadStage, got %v", err)
	}
	if err := s.SubmitPhone(context.Background(), "0712345678"); !errors.Is(err, checkout.ErrBadStage) {
		t.Fatalf("submit from cart: want ErrBadStage, got %v", err)
	}
}

func TestCloseKeepsLinesUnlessSucceeded(t *testing.T) {
	sub := &fakeSubmitter{res: checkout.SubmitResult{Success: true}}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 2)
	s.ProceedToCheckout()

	// abandon mid-flow: lines survive
	s.Close()
	if s.Stage() != checkout.StageCart || len(s.Lines()) != 1 {
		t.Fatalf("abandon should keep lines, stage=%s lines=%d", s.Stage(), len(s.Lines()))
	}

	s.ProceedToCheckout()
	_ = s.SelectCash(context.Background())
	if s.Stage() != checkout.StageSuccess {
		t.Fatalf("want success, got %s", s.Stage())
	}
	s.Close()
	if len(s.Lines()) != 0 {
		t.Fatal("close after success should empty the cart")
	}
}

func TestConcurrentSubmitRejected(t *testing.T) {
	sub := &fakeSubmitter{
		res:     checkout.SubmitResult{Success: true},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := checkout.NewSession(pricing(), sub)
	s.AddLine(sugar(), 1)
	s.ProceedToCheckout()
	_ = s.SelectMpesa()

	done := make(chan error, 1)
	go func() {
		done <- s.SubmitPhone(context.Background(), "0712345678")
	}()
	<-sub.entered // first submission is inside the external call

	if err := s.SubmitPhone(context.Background(), "0712345678"); !errors.Is(err, checkout.ErrSubmitting) {
		t.Fatalf("want ErrSubmitting, got %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if s.Stage() != checkout.StageSuccess {
		t.Fatalf("want success, got %s", s.Stage())
	}
	if sub.mpesaCalls != 1 {
		t.Fatalf("want exactly one external call, got %d", sub.mpesaCalls)
	}
}
