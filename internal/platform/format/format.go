package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var defaultTag = language.AmericanEnglish

// Currency renders a dollar amount with grouping and two decimals, e.g. "$1,234.50".
func Currency(amount decimal.Decimal, lang string) string {
	printer := message.NewPrinter(resolveTag(lang))
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "$" + printer.Sprintf("%.2f", rounded.InexactFloat64())
}

// Date formats a timestamp in the long US form, e.g. "January 15, 2024".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func resolveTag(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return defaultTag
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return defaultTag
	}
	return tag
}
