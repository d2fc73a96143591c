package format

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumber(t *testing.T) {
	issued := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	n := InvoiceNumber(issued)

	require.True(t, strings.HasPrefix(n, "INV-"))
	id, err := ulid.ParseStrict(strings.TrimPrefix(n, "INV-"))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(issued), id.Time())
	assert.NotEqual(t, n, InvoiceNumber(issued))
}

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"0":           "0.00",
		"140":         "140.00",
		"1234.5":      "1,234.50",
		"1234567.891": "1,234,567.89",
		"-9876.5":     "-9,876.50",
		"100000":      "100,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(decimal.RequireFromString(in)), in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "INV-1-acme-timber.pdf", FileName("INV-1", "Acme  Timber!"))
	assert.Equal(t, "INV-1.pdf", FileName("INV-1", ""))
}
