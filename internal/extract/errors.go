package extract

import "fmt"

// UnknownVendorError is returned when no registered vendor keyword appears
// in the document text.
type UnknownVendorError struct {
	Label string
}

func (e *UnknownVendorError) Error() string {
	return fmt.Sprintf("could not match any vendor for %s", e.Label)
}

// AmountNotFoundError is returned when the vendor's amount pattern does not
// match. Currency distinguishes the USD and RMB scans on repayment
// screenshots; invoice amounts are always USD.
type AmountNotFoundError struct {
	Label    string
	Currency string
}

func (e *AmountNotFoundError) Error() string {
	return fmt.Sprintf("could not find %s amount for %s", e.Currency, e.Label)
}

// PeriodNotFoundError is returned when a service-period pattern does not
// match invoice text. Boundary is "start" or "through".
type PeriodNotFoundError struct {
	Label    string
	Boundary string
}

func (e *PeriodNotFoundError) Error() string {
	return fmt.Sprintf("could not find service %s date for %s", e.Boundary, e.Label)
}

// DateParseError is returned when a captured date string does not parse
// under the vendor's expected layout.
type DateParseError struct {
	Label  string
	Value  string
	Layout string
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("could not parse date %q with layout %q for %s: %v", e.Value, e.Layout, e.Label, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}
