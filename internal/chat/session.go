// Package chat drives the order-assistant conversation: it feeds utterances
// through the resolver, tracks the awaiting-quantity context and the single
// pending order intent, and phrases the bot's replies.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sokojumla/internal/domain"
	"sokojumla/internal/resolver"
)

// Catalog is the read-only product source the driver resolves against.
type Catalog interface {
	ActiveProducts() ([]domain.Product, error)
}

// Receipt identifies a confirmed order.
type Receipt struct {
	OrderID string
	Message string
}

// Confirmer is the external order-confirmation collaborator.
type Confirmer interface {
	ConfirmIntent(ctx context.Context, sessionID, phone string, intent domain.OrderIntent) (Receipt, error)
}

// TurnSink receives every appended turn, e.g. for persistence. Appends are
// best-effort; a sink error never fails the conversation.
type TurnSink interface {
	Append(turn domain.ConversationTurn) error
}

// Session is one user's conversation. Turns are append-only; the pending
// product and intent are single slots where the last write wins, which is
// the accepted behavior for a single-user session.
type Session struct {
	mu      sync.Mutex
	id      string
	lang    string
	turns   []domain.ConversationTurn
	pending *domain.Product
	intent  *domain.OrderIntent

	catalog Catalog
	orders  Confirmer
	sink    TurnSink
}

func NewSession(id, lang string, catalog Catalog, orders Confirmer, sink TurnSink) *Session {
	s := &Session{id: id, lang: lang, catalog: catalog, orders: orders, sink: sink}
	s.appendBot(text(lang).welcome, false)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Lang() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SetLang switches the reply language mid-conversation.
func (s *Session) SetLang(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lang = lang
}

// Turns returns a copy of the conversation so far.
func (s *Session) Turns() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// PendingIntent reports the current unconfirmed intent, if any.
func (s *Session) PendingIntent() *domain.OrderIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.intent == nil {
		return nil
	}
	cp := *s.intent
	return &cp
}

// Handle appends the user's utterance, resolves it, applies the state
// effects of the outcome, and appends and returns the bot's reply.
func (s *Session) Handle(utterance string) (domain.ConversationTurn, resolver.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(domain.SenderUser, utterance, false)

	catalog, err := s.catalog.ActiveProducts()
	if err != nil {
		return s.appendBot(text(s.lang).orderError, false), resolver.Outcome{Type: resolver.NoMatch}
	}

	out := resolver.Resolve(utterance, s.lang, catalog, s.pending)
	m := text(s.lang)

	switch out.Type {
	case resolver.ReadyToConfirm:
		s.pending = nil
		s.intent = &domain.OrderIntent{Product: *out.Product, Quantity: out.Quantity, Total: out.Total}
		return s.appendBot(sprintf(m.confirmPrompt, out.Quantity, out.Product.Name, out.Total.StringFixed(2)), true), out

	case resolver.NeedQuantity:
		s.pending = out.Product
		return s.appendBot(sprintf(m.needQuantity, out.Product.Name, out.Product.Stock), false), out

	case resolver.InvalidQuantity:
		// pending context unchanged; just re-prompt
		return s.appendBot(m.invalidQuantity, false), out

	case resolver.InsufficientStock:
		// offer the satisfiable quantity instead
		s.pending = nil
		total := out.Product.Price.Mul(decimal.NewFromInt(int64(out.Available)))
		s.intent = &domain.OrderIntent{Product: *out.Product, Quantity: out.Available, Total: total}
		reply := sprintf(m.insufficientOffer, out.Available, out.Product.Name, out.Available)
		return s.appendBot(reply, true), out

	case resolver.OutOfStock:
		s.pending = nil
		return s.appendBot(sprintf(m.outOfStock, out.Product.Name), false), out

	default: // NoMatch
		reply := m.noMatch
		if names := resolver.Suggest(catalog, 5); len(names) > 0 {
			reply += " " + sprintf(m.suggestions, joinNames(names))
		}
		return s.appendBot(reply, false), out
	}
}

// Confirm submits the pending intent through the external collaborator.
// The intent survives a failed attempt so the user can retry.
func (s *Session) Confirm(ctx context.Context, phone string) domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := text(s.lang)
	if s.intent == nil {
		return s.appendBot(m.nothingToConfirm, false)
	}
	s.appendBot(m.processing, false)

	receipt, err := s.orders.ConfirmIntent(ctx, s.id, phone, *s.intent)
	if err != nil {
		reply := m.orderError
		if receipt.Message != "" {
			reply = receipt.Message
		}
		return s.appendBot(reply, false)
	}
	s.intent = nil
	return s.appendBot(sprintf(m.orderSuccess, receipt.OrderID), false)
}

// Cancel discards the pending intent.
func (s *Session) Cancel() domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intent = nil
	s.pending = nil
	return s.appendBot(text(s.lang).cancelled, false)
}

func (s *Session) append(sender, msg string, confirm bool) domain.ConversationTurn {
	turn := domain.ConversationTurn{
		ID:                   uuid.NewString(),
		SessionID:            s.id,
		Sender:               sender,
		Text:                 msg,
		RequiresConfirmation: confirm,
		CreatedAt:            time.Now().UTC().Format(time.RFC3339),
	}
	s.turns = append(s.turns, turn)
	if s.sink != nil {
		_ = s.sink.Append(turn)
	}
	return turn
}

func (s *Session) appendBot(msg string, confirm bool) domain.ConversationTurn {
	return s.append(domain.SenderBot, msg, confirm)
}
