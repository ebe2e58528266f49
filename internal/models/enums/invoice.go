// Package enums contains the small, closed-set value types shared across
// the invoicing domain models.
package enums

// InvoiceStatus tracks an invoice through the reception/authorization
// state machine described by the settlement worker.
type InvoiceStatus string

const (
	InvoiceStatusDraft        InvoiceStatus = "draft"
	InvoiceStatusQueued       InvoiceStatus = "queued"
	InvoiceStatusSigned       InvoiceStatus = "signed"
	InvoiceStatusSent         InvoiceStatus = "sent"
	InvoiceStatusReceived     InvoiceStatus = "received"
	InvoiceStatusAuthorizing  InvoiceStatus = "authorizing"
	InvoiceStatusAuthorized   InvoiceStatus = "authorized"
	InvoiceStatusRejected     InvoiceStatus = "rejected"
	InvoiceStatusNotAuthorize InvoiceStatus = "not_authorized"
	InvoiceStatusError        InvoiceStatus = "error"
	InvoiceStatusVoided       InvoiceStatus = "voided"
)

// IsTerminal reports whether the worker should stop polling this invoice.
func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case InvoiceStatusAuthorized, InvoiceStatusRejected, InvoiceStatusNotAuthorize, InvoiceStatusError, InvoiceStatusVoided:
		return true
	default:
		return false
	}
}

// DebitPolicy controls when credit is deducted from an issuer's ledger
// relative to the settlement outcome.
type DebitPolicy string

const (
	// DebitPolicyEager deducts credit synchronously at issuance time,
	// before the document is ever sent to the tax authority.
	DebitPolicyEager DebitPolicy = "eager"
	// DebitPolicyOnAuthorization defers the debit until the worker
	// observes a terminal "authorized" status.
	DebitPolicyOnAuthorization DebitPolicy = "on_authorization"
)

// DocumentType enumerates the SRI comprobante types this service issues.
// Only factura is implemented; the others are reserved for the access-key
// and sequence machinery, which is type-agnostic.
type DocumentType string

const (
	DocumentTypeFactura DocumentType = "01"
)

// Environment selects which SRI endpoint set and access-key digit applies.
type Environment string

const (
	EnvironmentTest Environment = "1"
	EnvironmentProd Environment = "2"
)

// TaxCode identifies an IVA tariff by the SRI's own codebook.
type TaxCode string

const (
	TaxCode0        TaxCode = "0"  // 0%
	TaxCode12       TaxCode = "2"  // 12%
	TaxCode14       TaxCode = "3"  // 14%
	TaxCode15       TaxCode = "4"  // 15%
	TaxCodeExempt   TaxCode = "6"  // exento
	TaxCodeNotTaxed TaxCode = "7"  // no objeto de impuesto
	TaxCode5        TaxCode = "10" // 5%
)
