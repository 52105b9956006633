package extract

// Vendor identifies a billable service whose invoices and card repayments
// must reconcile. The set is closed; display name and description are used
// for reporting only.
type Vendor string

const (
	GitHub      Vendor = "github"
	Mailgun     Vendor = "mailgun"
	Jira        Vendor = "jira"
	OnePassword Vendor = "1password"
	Azure       Vendor = "azure"
)

// vendorOrder is the canonical enumeration order. Reconciliation output and
// vendor detection both depend on it, so it is an explicit list rather than
// map iteration.
var vendorOrder = []Vendor{GitHub, Mailgun, Jira, OnePassword, Azure}

var vendorInfo = map[Vendor]struct {
	display     string
	description string
}{
	GitHub:      {"GitHub", "source code hosting"},
	Mailgun:     {"Mailgun", "transactional email relay"},
	Jira:        {"Jira", "issue tracking (Atlassian)"},
	OnePassword: {"1Password", "team password manager"},
	Azure:       {"Azure", "Microsoft cloud services"},
}

// Vendors returns every known vendor in canonical order.
func Vendors() []Vendor {
	out := make([]Vendor, len(vendorOrder))
	copy(out, vendorOrder)
	return out
}

// DisplayName returns the human-readable vendor name used in reports.
func (v Vendor) DisplayName() string {
	return vendorInfo[v].display
}

// Description returns a short description of the vendor's service.
func (v Vendor) Description() string {
	return vendorInfo[v].description
}

func (v Vendor) String() string {
	return string(v)
}
