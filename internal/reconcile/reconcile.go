// Package reconcile verifies that independently-sourced vendor totals agree
// before any report is generated: invoiced amounts from PDF text against
// repaid amounts from card screenshots, grouped per vendor and compared with
// exact decimal equality.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/reimburse-helper/internal/extract"
)

// InvoiceSource pairs an extracted invoice record with the label of the
// document it came from.
type InvoiceSource struct {
	Label  string
	Record extract.InvoiceRecord
}

// BillingSource pairs an extracted billing record with its source label.
type BillingSource struct {
	Label  string
	Record extract.BillingRecord
}

// LedgerEntry is the verified, aggregated per-vendor result. One entry per
// vendor with nonzero invoiced activity; never mutated after creation.
type LedgerEntry struct {
	Vendor         extract.Vendor  `json:"vendor"`
	USDAmount      decimal.Decimal `json:"usd_amount"`
	RMBAmount      decimal.Decimal `json:"rmb_amount"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodThrough  time.Time       `json:"period_through"`
	InvoiceLabels  []string        `json:"invoice_labels"`
	BillingLabels  []string        `json:"billing_labels"`
}

// Policy controls how mismatches are reported.
type Policy int

const (
	// StopOnFirstMismatch aborts at the first vendor whose totals differ.
	StopOnFirstMismatch Policy = iota
	// CollectMismatches checks every vendor and reports all mismatches in
	// one MismatchSetError.
	CollectMismatches
)

// ParsePolicy maps a config string to a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "stop":
		return StopOnFirstMismatch, true
	case "collect":
		return CollectMismatches, true
	}
	return StopOnFirstMismatch, false
}

// Reconcile groups both inputs by vendor, sums each side independently and
// asserts exact equality over the full vendor enumeration. A vendor absent
// from both inputs passes trivially (zero equals zero). On any mismatch no
// entries are returned: the output is all-or-nothing.
//
// Input order within a vendor is preserved in the entry's source labels;
// permuting the inputs never changes the emitted totals.
func Reconcile(invoices []InvoiceSource, billings []BillingSource, policy Policy) ([]LedgerEntry, error) {
	invoiceGroups := make(map[extract.Vendor][]InvoiceSource)
	for _, src := range invoices {
		invoiceGroups[src.Record.Vendor] = append(invoiceGroups[src.Record.Vendor], src)
	}
	billingGroups := make(map[extract.Vendor][]BillingSource)
	for _, src := range billings {
		billingGroups[src.Record.Vendor] = append(billingGroups[src.Record.Vendor], src)
	}

	var entries []LedgerEntry
	var mismatches []*MismatchError
	for _, vendor := range extract.Vendors() {
		invoiceTotal := decimal.Zero
		for _, src := range invoiceGroups[vendor] {
			invoiceTotal = invoiceTotal.Add(src.Record.Paid)
		}
		billingTotal := decimal.Zero
		rmbTotal := decimal.Zero
		for _, src := range billingGroups[vendor] {
			billingTotal = billingTotal.Add(src.Record.USDAmount)
			rmbTotal = rmbTotal.Add(src.Record.RMBAmount)
		}

		if !invoiceTotal.Equal(billingTotal) {
			mismatch := &MismatchError{
				Vendor:       vendor,
				InvoiceTotal: invoiceTotal,
				BillingTotal: billingTotal,
			}
			if policy == StopOnFirstMismatch {
				return nil, mismatch
			}
			mismatches = append(mismatches, mismatch)
			continue
		}

		if invoiceTotal.IsZero() {
			continue
		}

		group := invoiceGroups[vendor]
		entry := LedgerEntry{
			Vendor:        vendor,
			USDAmount:     billingTotal,
			RMBAmount:     rmbTotal,
			PeriodStart:   group[0].Record.ServiceStart,
			PeriodThrough: group[0].Record.ServiceThrough,
		}
		for _, src := range group {
			if src.Record.ServiceStart.Before(entry.PeriodStart) {
				entry.PeriodStart = src.Record.ServiceStart
			}
			if src.Record.ServiceThrough.After(entry.PeriodThrough) {
				entry.PeriodThrough = src.Record.ServiceThrough
			}
			entry.InvoiceLabels = append(entry.InvoiceLabels, src.Label)
		}
		for _, src := range billingGroups[vendor] {
			entry.BillingLabels = append(entry.BillingLabels, src.Label)
		}
		entries = append(entries, entry)
	}

	if len(mismatches) > 0 {
		return nil, &MismatchSetError{Mismatches: mismatches}
	}
	return entries, nil
}
