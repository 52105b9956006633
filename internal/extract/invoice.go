package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRecord is the normalized result of extracting one invoice PDF's
// text layer. Immutable once created.
type InvoiceRecord struct {
	Vendor         Vendor
	Paid           decimal.Decimal
	ServiceStart   time.Time
	ServiceThrough time.Time
}

// ParseInvoice extracts an InvoiceRecord from invoice document text. The
// label identifies the source document in error messages only. Matching is
// case-sensitive; text is expected as produced by the PDF text layer.
func ParseInvoice(text, label string) (InvoiceRecord, error) {
	vendor, ok := detectInvoiceVendor(text)
	if !ok {
		return InvoiceRecord{}, &UnknownVendorError{Label: label}
	}
	schema := schemaFor(vendor)

	m := schema.amount.FindStringSubmatch(text)
	if m == nil {
		return InvoiceRecord{}, &AmountNotFoundError{Label: label, Currency: "USD"}
	}
	paid, err := parseAmount(m[1])
	if err != nil {
		return InvoiceRecord{}, err
	}

	start, err := capturePeriodDate(schema.start, text, label, "start", schema.dateLayout)
	if err != nil {
		return InvoiceRecord{}, err
	}
	through, err := capturePeriodDate(schema.through, text, label, "through", schema.dateLayout)
	if err != nil {
		return InvoiceRecord{}, err
	}

	return InvoiceRecord{
		Vendor:         vendor,
		Paid:           paid,
		ServiceStart:   start,
		ServiceThrough: through,
	}, nil
}

func capturePeriodDate(pattern *regexp.Regexp, text, label, boundary, layout string) (time.Time, error) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, &PeriodNotFoundError{Label: label, Boundary: boundary}
	}
	t, err := time.ParseInLocation(layout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, &DateParseError{Label: label, Value: m[1], Layout: layout, Err: err}
	}
	return t, nil
}

// parseAmount converts a captured amount string to an exact decimal after
// stripping thousands separators. The patterns guarantee two fractional
// digits, so no rounding ever happens here.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}
