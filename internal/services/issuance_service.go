/*
Package services - Sequencing & Credit Core

==============================================================================
FILE: internal/services/issuance_service.go
==============================================================================

DESCRIPTION:
    IssuanceService orchestrates the full emit-an-invoice pipeline: resolve
    the emission point, advance its sequence, enforce the issuer's credit
    balance, assemble and sign the factura XML, render its RIDE, persist
    both artifacts, and insert the Invoice row — all inside one database
    transaction so a failure partway through never leaves a sequence number
    burned without a matching invoice, or a debited credit without one.

    The transaction-per-request shape and row-lock-then-mutate idiom match
    the rest of this codebase's transactional services; the credit/sequence
    interplay and the idempotency short-circuit are specific to this domain.

==============================================================================
*/
package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/errors"
	"backend/internal/models"
	"backend/internal/models/enums"
	"backend/internal/repositories"
)

// IssueInvoiceInput is the caller-supplied request to emit one factura.
type IssueInvoiceInput struct {
	IssuerID          uuid.UUID
	EstablishmentCode string
	EmissionPointCode string
	Customer          CustomerInfo
	Lines             []LineInput
	IdempotencyKey    string
	CallbackURL       string
	IssueDate         time.Time // zero value means now
}

// IssueInvoiceResult is what the emit endpoint hands back to the caller.
type IssueInvoiceResult struct {
	InvoiceID        uuid.UUID
	AccessKey        string
	Status           enums.InvoiceStatus
	PDFPath          string
	XMLPath          string
	CreditsRemaining int64
}

// IssuanceService wires together sequencing, credit enforcement, signing,
// rendering, and artifact storage into the single transactional unit the
// issuer-facing invoice-emission endpoints call.
type IssuanceService struct {
	db           *gorm.DB
	issuers      *repositories.IssuerRepository
	structure    *repositories.StructureRepository
	invoices     *repositories.InvoiceRepository
	ledgers      *repositories.CreditLedgerRepository
	artifacts    *ArtifactStore
	masterSecret string
}

// NewIssuanceService builds an IssuanceService. masterSecret is the key
// material used to decrypt issuer signing credentials; it is never
// persisted and must come from process configuration.
func NewIssuanceService(
	db *gorm.DB,
	issuers *repositories.IssuerRepository,
	structure *repositories.StructureRepository,
	invoices *repositories.InvoiceRepository,
	ledgers *repositories.CreditLedgerRepository,
	artifacts *ArtifactStore,
	masterSecret string,
) *IssuanceService {
	return &IssuanceService{
		db:           db,
		issuers:      issuers,
		structure:    structure,
		invoices:     invoices,
		ledgers:      ledgers,
		artifacts:    artifacts,
		masterSecret: masterSecret,
	}
}

// IssueInvoice runs the full emission pipeline inside a single transaction.
// A request replaying an already-used idempotency key short-circuits with
// the original result rather than burning a second sequence number.
func (s *IssuanceService) IssueInvoice(ctx context.Context, in IssueInvoiceInput) (*IssueInvoiceResult, error) {
	if in.IdempotencyKey != "" {
		if existing, err := s.invoices.FindByIdempotencyKey(in.IssuerID, in.IdempotencyKey); err == nil {
			return s.resultFromExisting(existing), nil
		} else if err != gorm.ErrRecordNotFound {
			return nil, errors.Wrap(err, errors.ErrDatabaseOperation)
		}
	}

	issuer, err := s.issuers.FindByID(in.IssuerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNotFound)
	}
	if !issuer.IsActive {
		return nil, errors.ErrAccountDeactivated.WithMessage("issuer is deactivated")
	}

	point, establishment, err := s.structure.FindEmissionPoint(in.IssuerID, in.EstablishmentCode, in.EmissionPointCode)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknownEmissionPoint)
	}
	if !point.IsActive {
		return nil, errors.ErrEmissionPointInactive.WithMessage(
			fmt.Sprintf("emission point %s-%s is inactive", in.EstablishmentCode, in.EmissionPointCode))
	}

	cred, err := LoadActiveCredentialForIssuer(s.db, in.IssuerID, s.masterSecret)
	if err != nil {
		return nil, err
	}

	taxes, err := ComputeTaxes(in.Lines, false)
	if err != nil {
		return nil, err
	}

	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	var invoice models.Invoice
	var signedXML []byte
	var ride bytes.Buffer

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		ledger, err := s.ledgers.FindByIssuerIDForUpdate(tx, in.IssuerID)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseOperation)
		}

		debitPolicy := enums.DebitPolicyEager
		if debitPolicy == enums.DebitPolicyEager {
			if err := ledger.Debit(tx, 1, nil, "invoice emission"); err != nil {
				if err == models.ErrInsufficientCredit {
					return errors.ErrInsufficientCredit
				}
				return errors.Wrap(err, errors.ErrDatabaseOperation)
			}
		}

		seq, err := point.Advance(tx)
		if err != nil {
			if err == gorm.ErrInvalidData {
				return errors.ErrEmissionPointInactive
			}
			return errors.Wrap(err, errors.ErrDatabaseOperation)
		}

		accessKey, err := BuildAccessKey(AccessKeyInput{
			EmissionDate:  issueDate,
			DocumentType:  enums.DocumentTypeFactura,
			RUC:           issuer.RUC,
			Environment:   issuer.Environment,
			EstabAndPoint: establishment.Code + point.Code,
			Sequential:    seq,
		})
		if err != nil {
			return err
		}

		specialTaxpayer := ""
		if issuer.SpecialTaxpayerNumber != nil {
			specialTaxpayer = *issuer.SpecialTaxpayerNumber
		}

		unsignedXML, err := AssembleFacturaXML(
			IssuerInfo{
				RUC:                issuer.RUC,
				LegalName:          issuer.LegalName,
				TradeName:          issuer.TradeName,
				MainAddress:        issuer.MainAddress,
				Environment:        issuer.Environment,
				AccountingRequired: issuer.AccountingRequired,
				SpecialTaxpayer:    specialTaxpayer,
			},
			EmissionInfo{
				EstablishmentCode: establishment.Code,
				EmissionPointCode: point.Code,
				EstablishmentAddr: establishment.Address,
				Sequence:          seq,
				AccessKey:         accessKey,
				IssueDate:         issueDate,
			},
			in.Customer,
			taxes,
		)
		if err != nil {
			return err
		}

		signedXML, err = SignFacturaXML(unsignedXML, cred)
		if err != nil {
			return err
		}

		invoice = models.Invoice{
			IssuerID:         in.IssuerID,
			EstablishmentID:  establishment.ID,
			EmissionPointID:  point.ID,
			DocumentType:     enums.DocumentTypeFactura,
			Sequence:         seq,
			AccessKey:        accessKey,
			Environment:      issuer.Environment,
			Status:           enums.InvoiceStatusSigned,
			CustomerName:     in.Customer.Name,
			CustomerIDType:   in.Customer.IDType,
			CustomerIDNumber: in.Customer.IDNumber,
			CustomerEmail:    in.Customer.Email,
			Subtotal0:        taxes.Summary.Subtotal0,
			SubtotalIVA:      taxes.Summary.SubtotalIVA,
			TotalDiscount:    taxes.Summary.TotalDescuento,
			TotalIVA:         taxes.Summary.TotalIVA,
			TotalAmount:      taxes.Summary.ImporteTotal,
			Currency:         "USD",
			IssueDate:        issueDate,
			DebitPolicy:      debitPolicy,
			IdempotencyKey:   in.IdempotencyKey,
			CallbackURL:      in.CallbackURL,
			LastActionAt:     time.Now(),
		}
		if debitPolicy == enums.DebitPolicyEager {
			now := time.Now()
			invoice.DebitedAt = &now
		}
		for _, line := range taxes.Lines {
			invoice.Lines = append(invoice.Lines, models.InvoiceLine{
				ProductCode: line.ProductCode,
				Description: line.Description,
				Quantity:    line.Cantidad,
				UnitPrice:   line.PrecioUnit,
				Discount:    line.Descuento,
				TaxCode:     line.TaxCode,
				TaxRate:     line.TarifaIVA,
				LineTotal:   line.LineTotal,
				TaxAmount:   line.Valor,
			})
		}

		if err := RenderRIDE(&ride, ReceiptInvoice{
			AccessKey:         accessKey,
			IssuerLegalName:   issuer.LegalName,
			IssuerRUC:         issuer.RUC,
			IssuerAddress:     establishment.Address,
			EstablishmentCode: establishment.Code,
			EmissionPointCode: point.Code,
			Sequential:        seq,
			CustomerName:      in.Customer.Name,
			CustomerIDType:    in.Customer.IDType,
			CustomerIDNumber:  in.Customer.IDNumber,
			IssueDate:         issueDate.Format("02/01/2006"),
			Lines:             taxes.Lines,
			Summary:           taxes.Summary,
			Status:            invoice.Status,
		}); err != nil {
			return err
		}

		xmlPath, err := s.artifacts.Put(ctx, artifactBucket, accessKey+"/signed.xml", signedXML, "application/xml")
		if err != nil {
			return errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
		}
		pdfPath, err := s.artifacts.Put(ctx, artifactBucket, accessKey+"/ride.pdf", ride.Bytes(), "application/pdf")
		if err != nil {
			s.cleanupArtifact(ctx, xmlPath)
			return errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
		}
		invoice.SignedXMLKey = xmlPath
		invoice.RideKey = pdfPath

		if err := s.invoices.Create(tx, &invoice); err != nil {
			s.cleanupArtifact(ctx, xmlPath)
			s.cleanupArtifact(ctx, pdfPath)
			return errors.Wrap(err, errors.ErrDatabaseOperation)
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	ledger, err := s.ledgers.FindByIssuerID(in.IssuerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseOperation)
	}

	return &IssueInvoiceResult{
		InvoiceID:        invoice.ID,
		AccessKey:        invoice.AccessKey,
		Status:           invoice.Status,
		PDFPath:          invoice.RideKey,
		XMLPath:          invoice.SignedXMLKey,
		CreditsRemaining: ledger.Balance,
	}, nil
}

// EnqueueInvoice validates the request, advances the emission point's
// sequence, and persists a PENDIENTE (InvoiceStatusQueued) row carrying its
// unsigned XML — without signing it and without debiting credit. Signing,
// RIDE rendering, and artifact upload are deferred to the Settlement
// Worker's SignAndCommitPending pass; the credit debit itself is deferred
// further still, to authorization (DebitPolicyOnAuthorization, settled by
// SettlementWorker.settleCredit). This is the path /invoices/emit uses so a
// dashboard request never blocks on a PKCS#12 unlock or an SRI round trip.
func (s *IssuanceService) EnqueueInvoice(ctx context.Context, in IssueInvoiceInput) (*IssueInvoiceResult, error) {
	if in.IdempotencyKey != "" {
		if existing, err := s.invoices.FindByIdempotencyKey(in.IssuerID, in.IdempotencyKey); err == nil {
			return s.resultFromExisting(existing), nil
		} else if err != gorm.ErrRecordNotFound {
			return nil, errors.Wrap(err, errors.ErrDatabaseOperation)
		}
	}

	issuer, err := s.issuers.FindByID(in.IssuerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNotFound)
	}
	if !issuer.IsActive {
		return nil, errors.ErrAccountDeactivated.WithMessage("issuer is deactivated")
	}

	point, establishment, err := s.structure.FindEmissionPoint(in.IssuerID, in.EstablishmentCode, in.EmissionPointCode)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknownEmissionPoint)
	}
	if !point.IsActive {
		return nil, errors.ErrEmissionPointInactive.WithMessage(
			fmt.Sprintf("emission point %s-%s is inactive", in.EstablishmentCode, in.EmissionPointCode))
	}

	// Fail fast on a missing or expired signing credential rather than
	// discover it only when the worker tries to sign minutes later; the
	// decrypted credential itself is discarded, never cached.
	if _, err := LoadActiveCredentialForIssuer(s.db, in.IssuerID, s.masterSecret); err != nil {
		return nil, err
	}

	taxes, err := ComputeTaxes(in.Lines, false)
	if err != nil {
		return nil, err
	}

	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	var invoice models.Invoice

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		seq, err := point.Advance(tx)
		if err != nil {
			if err == gorm.ErrInvalidData {
				return errors.ErrEmissionPointInactive
			}
			return errors.Wrap(err, errors.ErrDatabaseOperation)
		}

		accessKey, err := BuildAccessKey(AccessKeyInput{
			EmissionDate:  issueDate,
			DocumentType:  enums.DocumentTypeFactura,
			RUC:           issuer.RUC,
			Environment:   issuer.Environment,
			EstabAndPoint: establishment.Code + point.Code,
			Sequential:    seq,
		})
		if err != nil {
			return err
		}

		specialTaxpayer := ""
		if issuer.SpecialTaxpayerNumber != nil {
			specialTaxpayer = *issuer.SpecialTaxpayerNumber
		}

		unsignedXML, err := AssembleFacturaXML(
			IssuerInfo{
				RUC:                issuer.RUC,
				LegalName:          issuer.LegalName,
				TradeName:          issuer.TradeName,
				MainAddress:        issuer.MainAddress,
				Environment:        issuer.Environment,
				AccountingRequired: issuer.AccountingRequired,
				SpecialTaxpayer:    specialTaxpayer,
			},
			EmissionInfo{
				EstablishmentCode: establishment.Code,
				EmissionPointCode: point.Code,
				EstablishmentAddr: establishment.Address,
				Sequence:          seq,
				AccessKey:         accessKey,
				IssueDate:         issueDate,
			},
			in.Customer,
			taxes,
		)
		if err != nil {
			return err
		}

		unsignedPath, err := s.artifacts.Put(ctx, artifactBucket, accessKey+"/unsigned.xml", unsignedXML, "application/xml")
		if err != nil {
			return errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
		}

		invoice = models.Invoice{
			IssuerID:         in.IssuerID,
			EstablishmentID:  establishment.ID,
			EmissionPointID:  point.ID,
			DocumentType:     enums.DocumentTypeFactura,
			Sequence:         seq,
			AccessKey:        accessKey,
			Environment:      issuer.Environment,
			Status:           enums.InvoiceStatusQueued,
			CustomerName:     in.Customer.Name,
			CustomerIDType:   in.Customer.IDType,
			CustomerIDNumber: in.Customer.IDNumber,
			CustomerEmail:    in.Customer.Email,
			Subtotal0:        taxes.Summary.Subtotal0,
			SubtotalIVA:      taxes.Summary.SubtotalIVA,
			TotalDiscount:    taxes.Summary.TotalDescuento,
			TotalIVA:         taxes.Summary.TotalIVA,
			TotalAmount:      taxes.Summary.ImporteTotal,
			Currency:         "USD",
			IssueDate:        issueDate,
			UnsignedXMLKey:   unsignedPath,
			DebitPolicy:      enums.DebitPolicyOnAuthorization,
			IdempotencyKey:   in.IdempotencyKey,
			CallbackURL:      in.CallbackURL,
			LastActionAt:     time.Now(),
		}
		for _, line := range taxes.Lines {
			invoice.Lines = append(invoice.Lines, models.InvoiceLine{
				ProductCode: line.ProductCode,
				Description: line.Description,
				Quantity:    line.Cantidad,
				UnitPrice:   line.PrecioUnit,
				Discount:    line.Descuento,
				TaxCode:     line.TaxCode,
				TaxRate:     line.TarifaIVA,
				LineTotal:   line.LineTotal,
				TaxAmount:   line.Valor,
			})
		}

		if err := s.invoices.Create(tx, &invoice); err != nil {
			s.cleanupArtifact(ctx, unsignedPath)
			return errors.Wrap(err, errors.ErrDatabaseOperation)
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	ledger, err := s.ledgers.FindByIssuerID(in.IssuerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseOperation)
	}

	return &IssueInvoiceResult{
		InvoiceID:        invoice.ID,
		AccessKey:        invoice.AccessKey,
		Status:           invoice.Status,
		CreditsRemaining: ledger.Balance,
	}, nil
}

// cleanupArtifact best-effort deletes an already-uploaded object when a
// later step in the same transaction attempt fails, so a rolled-back
// invoice never leaves an orphaned XML or PDF behind in object storage.
// Errors are swallowed: the transaction is already failing for its own
// reason, and a stray object is a cheaper outcome than masking that error.
func (s *IssuanceService) cleanupArtifact(ctx context.Context, path string) {
	if path == "" {
		return
	}
	bucket, key, ok := splitArtifactPath(path)
	if !ok {
		return
	}
	_ = s.artifacts.Delete(ctx, bucket, key)
}

func (s *IssuanceService) resultFromExisting(invoice *models.Invoice) *IssueInvoiceResult {
	return &IssueInvoiceResult{
		InvoiceID: invoice.ID,
		AccessKey: invoice.AccessKey,
		Status:    invoice.Status,
		PDFPath:   invoice.RideKey,
		XMLPath:   invoice.SignedXMLKey,
	}
}

// artifactBucket is the single MinIO bucket every issuer's signed XML and
// RIDE PDF artifacts are stored under, keyed by access key.
const artifactBucket = "comprobantes"
