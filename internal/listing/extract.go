package listing

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"sjsage522/soldlistings/helpers"

	"github.com/shopspring/decimal"
)

var (
	// amountRegex matches a decimal with exactly two fractional digits, optionally thousands-separated
	amountRegex   = regexp.MustCompile(`(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b`)
	currencyRegex = regexp.MustCompile(`\b(USD|GBP|EUR|CAD|AUD|NZD|JPY|CHF|MXN|SEK)\b`)
	freeRegex     = regexp.MustCompile(`(?i)\bfree\b`)

	currencySymbols = [][2]string{
		{"AU $", "AUD"},
		{"C $", "CAD"},
		{"£", "GBP"},
		{"€", "EUR"},
		{"¥", "JPY"},
	}

	sellerPrefixes = []string{"seller", "sold by"}
	datePrefixes   = []string{"sold", "ended"}

	dateLayouts = []string{
		time.RFC3339Nano,
		"Jan 2, 2006",
		"Jan 2, 2006 15:04",
		"Jan 2, 2006 3:04PM",
		"2 Jan 2006",
		"2006-01-02",
	}
)

const itemPathMarker = "/itm/"

// ExtractPrice pulls a plain decimal amount and its currency out of free text.
// "$1,234.56 each" yields ("1234.56", "USD"); text without an amount yields ("0", "USD").
func ExtractPrice(text string) (string, string) {
	return extractAmount(text), extractCurrency(text)
}

// ExtractAmount normalizes a pre-typed amount/currency pair from a structured source
func ExtractAmount(value, currencyID string) (string, string) {
	currency := strings.ToUpper(strings.TrimSpace(currencyID))
	if currency == "" {
		currency = DefaultCurrency
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return ZeroAmount, currency
	}
	if _, err := decimal.NewFromString(value); err != nil {
		return ZeroAmount, currency
	}
	return value, currency
}

// ExtractShipping maps shipping text to a cost; "free" and unparsable text cost "0"
func ExtractShipping(text string) (string, string) {
	currency := extractCurrency(text)
	if freeRegex.MatchString(text) {
		return ZeroAmount, currency
	}
	return extractAmount(text), currency
}

// ExtractDate returns the first non-empty candidate, in priority order.
// Known date layouts are normalized to RFC3339; other text is kept as written.
func ExtractDate(candidates ...string) (string, bool) {
	raw := helpers.FirstNonEmpty(candidates...)
	if raw == "" {
		return "", false
	}

	text := stripPrefix(raw, datePrefixes)
	if text == "" {
		text = raw
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			if t.Year() == 0 {
				continue
			}
			return t.UTC().Format(time.RFC3339), true
		}
	}
	return text, true
}

// ExtractItemID returns the path segment following the item marker of a listing URL
func ExtractItemID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	tail, err := helpers.GetSplitPart(helpers.StripQuery(rawURL), itemPathMarker, 1)
	if err != nil {
		return ""
	}
	id, _ := helpers.GetSplitPart(tail, "/", 0)
	return strings.TrimSpace(id)
}

// ExtractSeller strips a seller label and falls back to UnknownSeller
func ExtractSeller(text string) string {
	seller := stripPrefix(text, sellerPrefixes)
	if seller == "" {
		return UnknownSeller
	}
	return seller
}

func extractAmount(text string) string {
	match := amountRegex.FindString(text)
	if match == "" {
		return ZeroAmount
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return ZeroAmount
	}
	return amount.StringFixed(2)
}

func extractCurrency(text string) string {
	if m := currencyRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	for _, pair := range currencySymbols {
		if strings.Contains(text, pair[0]) {
			return pair[1]
		}
	}
	return DefaultCurrency
}

func stripPrefix(text string, prefixes []string) string {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, p := range prefixes {
		if !strings.HasPrefix(lower, p) {
			continue
		}
		rest := text[len(p):]
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || r == ':' || unicode.IsSpace(r) {
			return strings.TrimSpace(strings.TrimLeft(rest, ": "))
		}
	}
	return text
}
