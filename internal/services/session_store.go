package services

import (
	"sync"

	"sokojumla/internal/chat"
	"sokojumla/internal/checkout"
	"sokojumla/internal/config"
	"sokojumla/internal/repos"
)

// SessionStore holds each visitor's in-memory chat and checkout sessions,
// keyed by the sid cookie. Sessions are deliberately not persisted: a
// restart starts everyone from an empty cart and a fresh conversation.
type SessionStore struct {
	mu        sync.Mutex
	pricing   config.Pricing
	catalog   *CatalogService
	orders    *OrderService
	convo     *repos.ConversationRepo
	chats     map[string]*chat.Session
	checkouts map[string]*checkout.Session
}

func NewSessionStore(pricing config.Pricing, catalog *CatalogService, orders *OrderService, convo *repos.ConversationRepo) *SessionStore {
	return &SessionStore{
		pricing:   pricing,
		catalog:   catalog,
		orders:    orders,
		convo:     convo,
		chats:     make(map[string]*chat.Session),
		checkouts: make(map[string]*checkout.Session),
	}
}

// Chat returns the conversation for sid, creating it on first use. A
// changed language code takes effect on the existing session.
func (s *SessionStore) Chat(sid, lang string) *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.chats[sid]; ok {
		if lang != "" && lang != cs.Lang() {
			cs.SetLang(lang)
		}
		return cs
	}
	cs := chat.NewSession(sid, lang, s.catalog, s.orders, s.convo)
	s.chats[sid] = cs
	return cs
}

// Checkout returns the checkout session for sid, creating it on first use.
func (s *SessionStore) Checkout(sid string) *checkout.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.checkouts[sid]; ok {
		return cs
	}
	cs := checkout.NewSession(s.pricing, CheckoutSubmitter{Orders: s.orders, SessionID: sid})
	s.checkouts[sid] = cs
	return cs
}
