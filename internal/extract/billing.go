package extract

import "github.com/shopspring/decimal"

// BillingRecord is the normalized result of extracting one card-repayment
// screenshot via OCR. A repayment is a point-in-time transaction, so there
// is no service period.
type BillingRecord struct {
	Vendor    Vendor
	USDAmount decimal.Decimal
	RMBAmount decimal.Decimal
}

// ParseBilling extracts a BillingRecord from OCR text of a repayment
// screenshot. The text is normalized (spaces stripped, lowercased) before
// matching, so callers can pass raw OCR output directly.
func ParseBilling(text, label string) (BillingRecord, error) {
	normalized := normalizeBillingText(text)

	vendor, ok := detectBillingVendor(normalized)
	if !ok {
		return BillingRecord{}, &UnknownVendorError{Label: label}
	}

	m := billingRMBAmount.FindStringSubmatch(normalized)
	if m == nil {
		return BillingRecord{}, &AmountNotFoundError{Label: label, Currency: "RMB"}
	}
	rmb, err := parseAmount(m[1])
	if err != nil {
		return BillingRecord{}, err
	}

	m = billingUSDAmount.FindStringSubmatch(normalized)
	if m == nil {
		return BillingRecord{}, &AmountNotFoundError{Label: label, Currency: "USD"}
	}
	usd, err := parseAmount(m[1])
	if err != nil {
		return BillingRecord{}, err
	}

	return BillingRecord{Vendor: vendor, USDAmount: usd, RMBAmount: rmb}, nil
}
