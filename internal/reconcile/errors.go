package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/reimburse-helper/internal/extract"
)

// MismatchError reports one vendor whose invoiced total does not equal its
// repaid total. Both totals are carried so the operator can see the gap.
type MismatchError struct {
	Vendor       extract.Vendor
	InvoiceTotal decimal.Decimal
	BillingTotal decimal.Decimal
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: invoiced total %s does not match repaid total %s",
		e.Vendor, e.InvoiceTotal.StringFixed(2), e.BillingTotal.StringFixed(2))
}

// MismatchSetError aggregates every mismatch found under the
// CollectMismatches policy.
type MismatchSetError struct {
	Mismatches []*MismatchError
}

func (e *MismatchSetError) Error() string {
	msgs := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		msgs[i] = m.Error()
	}
	return fmt.Sprintf("%d vendor(s) failed reconciliation: %s", len(e.Mismatches), strings.Join(msgs, "; "))
}
