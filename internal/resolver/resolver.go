// Package resolver maps one free-text utterance to a structured order
// intent against the product catalog. Resolve is a pure function: it never
// mutates the catalog and emits no messages; wording and state transitions
// belong to the chat driver.
package resolver

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"sokojumla/internal/domain"
)

type Type int

const (
	NoMatch Type = iota
	NeedQuantity
	InvalidQuantity
	OutOfStock
	InsufficientStock
	ReadyToConfirm
)

// String returns the wire name used by the chat API.
func (t Type) String() string {
	switch t {
	case NeedQuantity:
		return "need_quantity"
	case InvalidQuantity:
		return "invalid_quantity"
	case OutOfStock:
		return "out_of_stock"
	case InsufficientStock:
		return "insufficient_stock"
	case ReadyToConfirm:
		return "product_available"
	default:
		return "general"
	}
}

// Outcome is the single result of resolving one utterance. Exactly one
// variant applies; fields beyond Type are set only where noted.
type Outcome struct {
	Type      Type
	Product   *domain.Product // all variants except NoMatch and InvalidQuantity
	Quantity  int             // ReadyToConfirm, InsufficientStock (requested)
	Available int             // InsufficientStock
	Total     decimal.Decimal // ReadyToConfirm: Quantity * Product.Price
}

type pattern struct {
	re      *regexp.Regexp
	qtyIdx  int
	nameIdx int
}

// Utterance shapes per language, tried in order. Kept close to the phrasing
// wholesale customers actually type: "I want 5 cooking oil", "5 sugar",
// "sugar 5", "nataka mafuta ya kupikia 5".
var patterns = map[string][]pattern{
	"en": {
		{regexp.MustCompile(`(?i)(?:i'?\s*d\s+like|i\s+would\s+like)\s+(\d+)\s+(.+)`), 1, 2},
		{regexp.MustCompile(`(?i)(?:i\s+want|i\s+need|give\s+me|order|buy|get)\s+(\d+)\s+(.+)`), 1, 2},
		{regexp.MustCompile(`(?i)^(\d+)\s+(.+)`), 1, 2},
		{regexp.MustCompile(`(?i)(.+?)\s+(\d+)(?:\s|$)`), 2, 1},
	},
	"sw": {
		{regexp.MustCompile(`(?i)(?:ningependa|napenda)\s+(?:kupata|kuagiza)\s+(\d+)\s+(.+)`), 1, 2},
		{regexp.MustCompile(`(?i)(?:nataka|nahitaji|nipe|agiza|nunua|leta)\s+(.+?)\s+(\d+)`), 2, 1},
		{regexp.MustCompile(`(?i)^(\d+)\s+(.+)`), 1, 2},
		{regexp.MustCompile(`(?i)(.+?)\s+(\d+)(?:\s|$)`), 2, 1},
	},
}

var stopWords = map[string][]string{
	"en": {"please", "thanks", "thank you", "i want", "i need", "give me", "order", "buy", "get", "of", "bags of", "units of"},
	"sw": {"tafadhali", "asante", "nataka", "nahitaji", "nipe", "agiza", "nunua", "leta", "ya"},
}

var (
	reLeadingInt = regexp.MustCompile(`^(\d+)`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Resolve maps utterance to exactly one Outcome. When pending is non-nil the
// utterance is treated as a quantity reply for that product. language is
// "en" or "sw"; unknown codes fall back to English patterns.
func Resolve(utterance, language string, catalog []domain.Product, pending *domain.Product) Outcome {
	text := strings.ToLower(strings.TrimSpace(utterance))

	if pending != nil {
		return resolveQuantityReply(text, pending)
	}
	if text == "" || len(catalog) == 0 {
		return Outcome{Type: NoMatch}
	}

	lang := language
	if _, ok := patterns[lang]; !ok {
		lang = "en"
	}

	for _, p := range patterns[lang] {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		qty, ok := parseQuantity(m[p.qtyIdx])
		if !ok {
			continue
		}
		name := stripStopWords(m[p.nameIdx], lang)
		if name == "" {
			continue
		}
		prod := bestMatch(name, catalog)
		if prod == nil {
			continue
		}
		return withQuantity(prod, qty)
	}

	// No quantity shape matched; check for a bare product mention.
	if prod := bestMention(text, catalog); prod != nil {
		if prod.Stock <= 0 {
			return Outcome{Type: OutOfStock, Product: prod}
		}
		return Outcome{Type: NeedQuantity, Product: prod}
	}

	return Outcome{Type: NoMatch}
}

func resolveQuantityReply(text string, product *domain.Product) Outcome {
	m := reLeadingInt.FindString(text)
	if m == "" {
		return Outcome{Type: InvalidQuantity}
	}
	qty, ok := parseQuantity(m)
	if !ok {
		return Outcome{Type: InvalidQuantity}
	}
	return withQuantity(product, qty)
}

func withQuantity(p *domain.Product, qty int) Outcome {
	if p.Stock <= 0 {
		return Outcome{Type: OutOfStock, Product: p}
	}
	if qty > p.Stock {
		return Outcome{Type: InsufficientStock, Product: p, Quantity: qty, Available: p.Stock}
	}
	return Outcome{
		Type:     ReadyToConfirm,
		Product:  p,
		Quantity: qty,
		Total:    p.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func parseQuantity(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1_000_000 {
			return 0, false
		}
	}
	if n < 1 {
		return 0, false
	}
	return n, true
}

func stripStopWords(name, lang string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, w := range stopWords[lang] {
		name = regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`).ReplaceAllString(name, "")
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(name, " "))
}

// bestMatch scores every catalog product against the extracted name and
// returns the highest scorer. Ranking: exact name match, then substring
// containment, then word overlap. Ties resolve to the earliest catalog
// entry (strictly-greater comparison), so results are deterministic.
func bestMatch(name string, catalog []domain.Product) *domain.Product {
	var best *domain.Product
	bestScore := 0
	for i := range catalog {
		s := matchScore(name, strings.ToLower(catalog[i].Name))
		if s > bestScore {
			bestScore = s
			best = &catalog[i]
		}
	}
	return best
}

func matchScore(candidate, productName string) int {
	if candidate == productName {
		return 1000
	}
	if strings.Contains(productName, candidate) || strings.Contains(candidate, productName) {
		return 500
	}
	candWords := strings.Fields(candidate)
	prodWords := strings.Fields(productName)
	overlap := 0
	partial := 0
	for _, cw := range candWords {
		for _, pw := range prodWords {
			if cw == pw {
				overlap++
			} else if strings.Contains(pw, cw) || strings.Contains(cw, pw) {
				partial++
			}
		}
	}
	if overlap == 0 {
		return 0
	}
	return overlap*2 + partial
}

// bestMention looks for a product name referenced anywhere in the utterance,
// used when no quantity was given. Full-name containment outranks a single
// shared word; catalog order breaks ties.
func bestMention(text string, catalog []domain.Product) *domain.Product {
	words := strings.Fields(text)
	var best *domain.Product
	bestScore := 0
	for i := range catalog {
		name := strings.ToLower(catalog[i].Name)
		score := 0
		if strings.Contains(text, name) {
			score = 2
		} else {
			for _, pw := range strings.Fields(name) {
				if len(pw) < 3 {
					continue
				}
				for _, w := range words {
					if w == pw {
						score = 1
					}
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = &catalog[i]
		}
	}
	return best
}

// Suggest returns up to limit product names in catalog order, used for the
// help reply when nothing matched.
func Suggest(catalog []domain.Product, limit int) []string {
	if limit <= 0 || limit > len(catalog) {
		limit = len(catalog)
	}
	out := make([]string, 0, limit)
	for _, p := range catalog[:limit] {
		out = append(out, p.Name)
	}
	return out
}
