// Package format renders invoice identifiers and amounts for documents.
package format

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const invoicePrefix = "INV-"

// InvoiceNumber returns INV-<ulid>; the ulid's timestamp is issuedAt so
// numbers sort by issue time.
func InvoiceNumber(issuedAt time.Time) string {
	return invoicePrefix + ulid.MustNew(ulid.Timestamp(issuedAt), ulid.DefaultEntropy()).String()
}

// Money formats an amount with two decimals and thousands separators.
func Money(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// Date formats an issue date the way invoices print it.
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// FileName names the downloadable document, e.g. INV-01J...-acme-timber.pdf.
func FileName(invoiceNumber, customerName string) string {
	if s := slug.Make(customerName); s != "" {
		return invoiceNumber + "-" + s + ".pdf"
	}
	return invoiceNumber + ".pdf"
}
