package extract

import (
	"regexp"
	"strings"
)

// invoiceSchema describes how to pull financial facts out of one vendor's
// invoice layout. Every pattern has exactly one capture group; amounts are
// always formatted with two fractional digits in the source documents.
type invoiceSchema struct {
	vendor     Vendor
	keyword    string // case-sensitive substring that identifies the vendor
	amount     *regexp.Regexp
	start      *regexp.Regexp
	through    *regexp.Regexp
	dateLayout string // Go time layout for the captured date text
}

// invoiceSchemas is scanned in order and the first keyword match wins.
// Keep the more specific corporate names ahead of anything they could be a
// substring of; the order is part of the contract and is tested.
var invoiceSchemas = []invoiceSchema{
	{
		vendor:     GitHub,
		keyword:    "GitHub, Inc",
		amount:     regexp.MustCompile(`Total\n\$(\d+\.\d{2}) USD\*`),
		start:      regexp.MustCompile(`Date\n(\d{4}-\d{2}-\d{2})`),
		through:    regexp.MustCompile(`For service through\n(\d{4}-\d{2}-\d{2})`),
		dateLayout: "2006-01-02",
	},
	{
		vendor:     Mailgun,
		keyword:    "Mailgun Technologies, Inc",
		amount:     regexp.MustCompile(`PAID\n\$(\d+\.\d{2})`),
		start:      regexp.MustCompile(`Foundation\n\d\n.+?\n(\w+ \d{1,2}, \d{4}) - \w+ \d{1,2}, \d{4}`),
		through:    regexp.MustCompile(`Foundation\n\d\n.+?\n\w+ \d{1,2}, \d{4} - (\w+ \d{1,2}, \d{4})`),
		dateLayout: "Jan 2, 2006",
	},
	{
		vendor:     Jira,
		keyword:    "Atlassian Pty Ltd",
		amount:     regexp.MustCompile(`Total Paid: USD (\d+\.\d{2})`),
		start:      regexp.MustCompile(`Billing Period: (\w+ \d{1,2}, \d{4}) - \w+ \d{1,2}, \d{4}`),
		through:    regexp.MustCompile(`Billing Period: \w+ \d{1,2}, \d{4} - (\w+ \d{1,2}, \d{4})`),
		dateLayout: "Jan 2, 2006",
	},
	{
		vendor:     OnePassword,
		keyword:    "1Password",
		amount:     regexp.MustCompile(`Paid\n\$([\d,]+\.\d{2})`),
		start:      regexp.MustCompile(`(\w+ \d{1,2}, \d{4}) to \w+ \d{1,2}, \d{4}`),
		through:    regexp.MustCompile(`\w+ \d{1,2}, \d{4} to (\w+ \d{1,2}, \d{4})`),
		dateLayout: "January 2, 2006",
	},
	{
		vendor:     Azure,
		keyword:    "Microsoft Corporation",
		amount:     regexp.MustCompile(`Total Amount\nUSD ([\d,]+\.\d{2})`),
		start:      regexp.MustCompile(`This invoice is for the billing period (\d{2}/\d{2}/\d{4}) - \d{2}/\d{2}/\d{4}`),
		through:    regexp.MustCompile(`This invoice is for the billing period \d{2}/\d{2}/\d{4} - (\d{2}/\d{2}/\d{4})`),
		dateLayout: "01/02/2006",
	},
}

// billingKeyword maps a vendor to the keyword looked for in normalized
// (lowercased, space-stripped) repayment screenshot text. Same first-match
// ordering rules as the invoice registry.
type billingKeyword struct {
	vendor  Vendor
	keyword string
}

var billingKeywords = []billingKeyword{
	{GitHub, "github"},
	{Mailgun, "mailgun"},
	{Jira, "atlassian"},
	{OnePassword, "1password"},
	{Azure, "microsoft"},
}

// Repayment screenshots share one layout regardless of vendor: the RMB
// amount posted to the card and the original transaction amount in USD.
var (
	billingRMBAmount = regexp.MustCompile(`￥(\d+\.\d{2})已入账`)
	billingUSDAmount = regexp.MustCompile(`交易地金额：(\d+\.\d{2})`)
)

// detectInvoiceVendor returns the first vendor whose keyword appears in the
// document text as a case-sensitive substring.
func detectInvoiceVendor(text string) (Vendor, bool) {
	for _, s := range invoiceSchemas {
		if strings.Contains(text, s.keyword) {
			return s.vendor, true
		}
	}
	return "", false
}

// detectBillingVendor returns the first vendor whose keyword appears in the
// already-normalized screenshot text.
func detectBillingVendor(normalized string) (Vendor, bool) {
	for _, k := range billingKeywords {
		if strings.Contains(normalized, k.keyword) {
			return k.vendor, true
		}
	}
	return "", false
}

func schemaFor(v Vendor) invoiceSchema {
	for _, s := range invoiceSchemas {
		if s.vendor == v {
			return s
		}
	}
	// Vendors and invoiceSchemas are compile-time parallel sets; a miss is
	// a configuration error, not a runtime condition.
	panic("extract: no invoice schema for vendor " + string(v))
}

// normalizeBillingText strips spaces and lowercases OCR output so keyword
// detection survives unstable OCR spacing and casing.
func normalizeBillingText(text string) string {
	return strings.ToLower(strings.ReplaceAll(text, " ", ""))
}
