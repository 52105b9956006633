package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finops-tools/reimburse-helper/internal/extract"
)

// InvoiceDocument is a stored invoice upload together with its extracted
// record. The record fields never change after extraction.
type InvoiceDocument struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	StoredPath     string          `json:"stored_path"`
	ContentType    string          `json:"content_type"`
	Vendor         extract.Vendor  `json:"vendor"`
	Paid           decimal.Decimal `json:"paid"`
	ServiceStart   time.Time       `json:"service_start"`
	ServiceThrough time.Time       `json:"service_through"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BillingDocument is a stored repayment screenshot together with its
// extracted record.
type BillingDocument struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	StoredPath  string          `json:"stored_path"`
	ContentType string          `json:"content_type"`
	Vendor      extract.Vendor  `json:"vendor"`
	USDAmount   decimal.Decimal `json:"usd_amount"`
	RMBAmount   decimal.Decimal `json:"rmb_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}
