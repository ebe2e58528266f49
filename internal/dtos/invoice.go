/*
Package dtos - Invoice Emission Data Transfer Objects

==============================================================================
FILE: internal/dtos/invoice.go
==============================================================================

DESCRIPTION:
    Request and response shapes for invoice emission and lookup, shared by
    both the issuer-dashboard endpoints (/invoices/*) and the server-to-
    server integration endpoints (/integrations/*).

==============================================================================
*/
package dtos

import "time"

// EmitInvoiceLineRequest is one caller-supplied billing line.
type EmitInvoiceLineRequest struct {
	ProductCode string  `json:"product_code" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gte=0"`
	Discount    float64 `json:"discount"`
	TaxRate     float64 `json:"tax_rate"`
}

// EmitInvoiceRequest is the body of POST /invoices/emit and
// POST /integrations/invoice.
type EmitInvoiceRequest struct {
	EstablishmentCode string                   `json:"establishment_code" binding:"required,len=3"`
	EmissionPointCode string                   `json:"emission_point_code" binding:"required,len=3"`
	CustomerName      string                   `json:"customer_name" binding:"required"`
	CustomerIDType    string                   `json:"customer_id_type" binding:"required"`
	CustomerIDNumber  string                   `json:"customer_id_number" binding:"required"`
	CustomerEmail     string                   `json:"customer_email"`
	Lines             []EmitInvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
	IdempotencyKey    string                   `json:"idempotency_key"`
	CallbackURL       string                   `json:"callback_url"`
}

// EmitInvoiceResponse is returned on successful emission.
type EmitInvoiceResponse struct {
	InvoiceID        string `json:"invoice_id"`
	ClaveAcceso      string `json:"clave_acceso"`
	Status           string `json:"status"`
	PDFPath          string `json:"pdf_path"`
	XMLPath          string `json:"xml_path"`
	CreditsRemaining int64  `json:"credits_remaining"`
}

// InvoiceSummary is one row of the issuer's emission history.
type InvoiceSummary struct {
	ID                  string     `json:"id"`
	AccessKey           string     `json:"access_key"`
	Status              string     `json:"status"`
	CustomerName        string     `json:"customer_name"`
	TotalAmount         float64    `json:"total_amount"`
	IssueDate           time.Time  `json:"issue_date"`
	AuthorizationNumber *string    `json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time `json:"authorized_at,omitempty"`
}

// InvoiceHistoryResponse is the paginated result of GET /invoices/history.
type InvoiceHistoryResponse struct {
	Invoices []InvoiceSummary `json:"invoices"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// InvoiceStatusResponse is returned by GET /integrations/status/:claveAcceso.
type InvoiceStatusResponse struct {
	ClaveAcceso         string  `json:"clave_acceso"`
	Status              string  `json:"status"`
	AuthorizationNumber *string `json:"authorization_number,omitempty"`
	SRIMessages         string  `json:"sri_messages,omitempty"`
}

// ValidateAccessKeyRequest is the body of POST /integrations/validate.
type ValidateAccessKeyRequest struct {
	ClaveAcceso string `json:"clave_acceso" binding:"required,len=49"`
}

// ValidateAccessKeyResponse reports whether the supplied key's check digit
// is valid, without requiring a database lookup.
type ValidateAccessKeyResponse struct {
	ClaveAcceso string `json:"clave_acceso"`
	Valid       bool   `json:"valid"`
}
