// Package lexicon holds the weighted phrase tables used to score messages.
// Tables are immutable; callers get copies.
package lexicon

import "fmt"

// Category of a lexicon entry
type Category int

// enum of supported categories
const (
	Urgency Category = iota
	Financial
	URLHeuristic
	SenderHeuristic
)

// points per category in hundredths of the score, each matched entry contributes its category points once
const (
	UrgencyPoints   = 30
	FinancialPoints = 25
	URLPoints       = 20
	SenderPoints    = 15
)

// weights per category, the same values as fractions of the score
const (
	UrgencyWeight   = UrgencyPoints / 100.0
	FinancialWeight = FinancialPoints / 100.0
	URLWeight       = URLPoints / 100.0
	SenderWeight    = SenderPoints / 100.0
)

// Entry is a single weighted phrase
type Entry struct {
	Phrase   string
	Category Category
	Points   int // weight in hundredths, exact
	Weight   float64
}

var urgency = entries(Urgency, UrgencyPoints,
	"urgent", "immediately", "act now", "limited time", "expires",
	"verify", "confirm", "suspended", "blocked", "security", "click here",
)

var financial = entries(Financial, FinancialPoints,
	"password", "pin", "ssn", "credit card", "bank account",
	"wire transfer", "gift card", "bitcoin", "cryptocurrency",
	"account", "login", "verify account",
)

// url and sender markers are matched as a group, any hit counts once for the whole group
var urlMarkers = entries(URLHeuristic, URLPoints, "http", "www.", ".com")

var senderMarkers = entries(SenderHeuristic, SenderPoints, "bank", "paypal", "amazon")

func entries(c Category, points int, phrases ...string) []Entry {
	res := make([]Entry, 0, len(phrases))
	for _, p := range phrases {
		res = append(res, Entry{Phrase: p, Category: c, Points: points, Weight: float64(points) / 100})
	}
	return res
}

// ByCategory returns a copy of entries for the given category, in table order.
// Unknown category returns nil.
func ByCategory(c Category) []Entry {
	var src []Entry
	switch c {
	case Urgency:
		src = urgency
	case Financial:
		src = financial
	case URLHeuristic:
		src = urlMarkers
	case SenderHeuristic:
		src = senderMarkers
	default:
		return nil
	}
	res := make([]Entry, len(src))
	copy(res, src)
	return res
}

// Size returns total number of entries in all tables
func Size() int {
	return len(urgency) + len(financial) + len(urlMarkers) + len(senderMarkers)
}

func (c Category) String() string {
	switch c {
	case Urgency:
		return "urgency"
	case Financial:
		return "financial"
	case URLHeuristic:
		return "url"
	case SenderHeuristic:
		return "sender"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}
