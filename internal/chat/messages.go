package chat

import (
	"fmt"
	"strings"
)

// catalog of bot replies per language. Two fixed languages with printf
// slots; the set mirrors what the assistant actually says, nothing more.
type messages struct {
	welcome           string
	needQuantity      string // product, stock
	invalidQuantity   string
	outOfStock        string // product
	insufficientOffer string // available, product
	confirmPrompt     string // quantity, product, total
	noMatch           string
	suggestions       string // joined names
	processing        string
	orderSuccess      string // order id
	orderError        string
	nothingToConfirm  string
	cancelled         string
}

var catalogs = map[string]messages{
	"en": {
		welcome:           "Hi! I'm your order assistant. I can help you place orders instantly. What would you like to order today?",
		needQuantity:      "Great! %s is available. We have %d units in stock. How many would you like to order?",
		invalidQuantity:   "Please enter a valid number. How many would you like to order?",
		outOfStock:        "I'm sorry, %s is currently out of stock.",
		insufficientOffer: "I'm sorry, we only have %d units of %s available. Would you like to order %d instead?",
		confirmPrompt:     "Shall I proceed with ordering %d %s for KSh %s?",
		noMatch:           "I'd be happy to help you order! Please tell me what product you'd like and how many. For example: 'I want 2 bags of rice'.",
		suggestions:       "Here are some available products: %s",
		processing:        "Order confirmed! Processing your payment...",
		orderSuccess:      "Excellent! Order #%s placed successfully. Payment request sent to your phone.",
		orderError:        "I encountered an error processing your order. Please try again.",
		nothingToConfirm:  "There is no pending order to confirm. Tell me what you'd like to order first.",
		cancelled:         "Order cancelled.",
	},
	"sw": {
		welcome:           "Habari! Mimi ni msaidizi wako wa kuagiza. Ninaweza kukusaidia kuagiza haraka. Ungependa kuagiza nini leo?",
		needQuantity:      "Vizuri! %s ipo. Tuna vipimo %d hifadhini. Ungependa vipimo ngapi?",
		invalidQuantity:   "Tafadhali weka nambari halali. Ungependa vipimo ngapi?",
		outOfStock:        "Samahani, %s haipo kwa sasa.",
		insufficientOffer: "Samahani, tuna vipimo %d tu vya %s. Ungependa kuagiza %d badala yake?",
		confirmPrompt:     "Je, niagize %d %s kwa KSh %s?",
		noMatch:           "Ningefurahi kukusaidia kuagiza! Tafadhali niambie ni bidhaa gani ungependa na ngapi. Mfano: 'Nataka mchele 2'.",
		suggestions:       "Hizi ni bidhaa zilizopo: %s",
		processing:        "Agizo limethibitishwa! Inachakata malipo yako...",
		orderSuccess:      "Bora! Agizo #%s limewekwa kikamilifu. Ombi la malipo limetumwa kwenye simu yako.",
		orderError:        "Hitilafu katika kuchakata agizo lako. Tafadhali jaribu tena.",
		nothingToConfirm:  "Hakuna agizo linalosubiri kuthibitishwa. Niambie kwanza unachotaka kuagiza.",
		cancelled:         "Agizo limeghairiwa.",
	},
}

func text(lang string) messages {
	if m, ok := catalogs[lang]; ok {
		return m
	}
	return catalogs["en"]
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func sprintf(format string, args ...any) string { return fmt.Sprintf(format, args...) }
