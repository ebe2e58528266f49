/*
Package models - Invoice aggregate

==============================================================================
FILE: internal/models/invoice.go
==============================================================================

DESCRIPTION:
    The Invoice model is the central aggregate of the billing system: it
    carries the assigned sequence and access key, the computed tax totals,
    the signed/authorized document artifacts (referenced by storage key, not
    inlined), and the status the settlement worker advances through.

==============================================================================
*/
package models

import (
	"time"

	"github.com/google/uuid"

	"backend/internal/models/enums"
)

// Invoice represents one factura electrónica, from draft through SRI
// authorization (or rejection).
type Invoice struct {
	BaseModel
	IssuerID        uuid.UUID            `gorm:"type:text;not null;index" json:"issuer_id"`
	EstablishmentID uuid.UUID            `gorm:"type:text;not null;index" json:"establishment_id"`
	EmissionPointID uuid.UUID            `gorm:"type:text;not null;index" json:"emission_point_id"`
	DocumentType    enums.DocumentType   `gorm:"type:text;not null;default:01" json:"document_type"`
	Sequence        int64                `gorm:"not null" json:"sequence"`
	AccessKey       string               `gorm:"type:varchar(49);uniqueIndex;not null" json:"access_key"`
	Environment     enums.Environment    `gorm:"type:text;not null" json:"environment"`
	Status          enums.InvoiceStatus  `gorm:"type:text;not null;index;default:draft" json:"status"`

	CustomerName     string `gorm:"type:varchar(300);not null" json:"customer_name"`
	CustomerIDType   string `gorm:"type:varchar(2);not null" json:"customer_id_type"`
	CustomerIDNumber string `gorm:"type:varchar(20);not null" json:"customer_id_number"`
	CustomerEmail    string `gorm:"type:varchar(255)" json:"customer_email,omitempty"`

	Subtotal0        float64 `gorm:"not null;default:0" json:"subtotal_0"`
	SubtotalIVA      float64 `gorm:"not null;default:0" json:"subtotal_iva"`
	SubtotalNoObjeto float64 `gorm:"not null;default:0" json:"subtotal_no_objeto"`
	SubtotalExento   float64 `gorm:"not null;default:0" json:"subtotal_exento"`
	TotalDiscount    float64 `gorm:"not null;default:0" json:"total_discount"`
	TotalIVA         float64 `gorm:"not null;default:0" json:"total_iva"`
	TotalPropina     float64 `gorm:"not null;default:0" json:"total_propina"`
	TotalAmount      float64 `gorm:"not null;default:0" json:"total_amount"`
	Currency         string  `gorm:"type:varchar(3);not null;default:USD" json:"currency"`

	IssueDate time.Time `gorm:"not null" json:"issue_date"`

	UnsignedXMLKey string  `gorm:"type:varchar(500)" json:"-"`
	SignedXMLKey   string  `gorm:"type:varchar(500)" json:"-"`
	RideKey        string  `gorm:"type:varchar(500)" json:"-"`
	AuthorizationNumber *string `gorm:"type:varchar(49)" json:"authorization_number,omitempty"`
	AuthorizedAt        *time.Time `json:"authorized_at,omitempty"`

	SRIMessages string `gorm:"type:text" json:"sri_messages,omitempty"`

	DebitPolicy    enums.DebitPolicy `gorm:"type:text;not null;default:eager" json:"debit_policy"`
	DebitedAt      *time.Time        `json:"debited_at,omitempty"`
	IdempotencyKey string            `gorm:"type:varchar(100);index" json:"idempotency_key,omitempty"`
	CallbackURL    string            `gorm:"type:varchar(500)" json:"callback_url,omitempty"`

	LastActionAt time.Time `gorm:"not null" json:"last_action_at"`
	RetryCount   int       `gorm:"not null;default:0" json:"retry_count"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceLine is a single billed item (detalle) on an invoice.
type InvoiceLine struct {
	BaseModel
	InvoiceID   uuid.UUID    `gorm:"type:text;not null;index" json:"invoice_id"`
	ProductCode string       `gorm:"type:varchar(50);not null" json:"product_code"`
	Description string       `gorm:"type:varchar(300);not null" json:"description"`
	Quantity    float64      `gorm:"not null" json:"quantity"`
	UnitPrice   float64      `gorm:"not null" json:"unit_price"`
	Discount    float64      `gorm:"not null;default:0" json:"discount"`
	TaxCode     enums.TaxCode `gorm:"type:text;not null" json:"tax_code"`
	TaxRate     float64      `gorm:"not null" json:"tax_rate"`
	LineTotal   float64      `gorm:"not null" json:"line_total"`
	TaxAmount   float64      `gorm:"not null" json:"tax_amount"`
}

func (InvoiceLine) TableName() string { return "invoice_lines" }
