/*
Package services - Settlement Worker

==============================================================================
FILE: internal/services/settlement_worker.go
==============================================================================

DESCRIPTION:
    SettlementWorker runs three independent ticker-driven jobs:

        Sign job      (~10s) InvoiceStatusQueued    -> Signed
        Submit job    (~20s) InvoiceStatusSigned    -> Sent/Received/Rejected
        Authorize job (~60s) InvoiceStatusReceived  -> Authorized/Rejected

    The sign job is the asynchronous half of invoice emission: rows queued
    by IssuanceService.EnqueueInvoice (the /invoices/emit path) carry only
    their unsigned XML. SignAndCommitPending loads the issuer's signing
    credential fresh, signs, renders the RIDE, uploads both artifacts, and
    advances the row to Signed so the submit job picks it up on its own
    next tick — the synchronous /integrations/invoice path does all of this
    inline instead, inside IssuanceService.IssueInvoice.

    Each tick claims a batch of due rows with SELECT ... FOR UPDATE SKIP
    LOCKED so two overlapping ticks, or a future second worker process,
    never race over the same invoice. A tick already in flight when its own
    next tick fires is skipped rather than queued, so a slow authority
    response never lets two submission passes against the same invoice
    run concurrently.

==============================================================================
*/
package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backend/internal/models"
	"backend/internal/models/enums"
	"backend/internal/repositories"
)

const (
	signInterval      = 10 * time.Second
	submitInterval    = 20 * time.Second
	authorizeInterval = 60 * time.Second
	soapRequestTimeout = 8 * time.Second
	maxBatchSize      = 25
	maxRetries        = 5
)

// SettlementWorker polls the authority on the caller's behalf so that
// IssueInvoice never blocks an HTTP request on a round trip to a
// government web service, and signs queued invoices in the background so
// EnqueueInvoice never blocks one on a PKCS#12 unlock either.
type SettlementWorker struct {
	db        *gorm.DB
	invoices  *repositories.InvoiceRepository
	ledgers   *repositories.CreditLedgerRepository
	issuers   *repositories.IssuerRepository
	structure *repositories.StructureRepository
	notifier  *Notifier
	artifacts *ArtifactStore
	soapClient *http.Client
	receptionURL    map[enums.Environment]string
	authorizationURL map[enums.Environment]string
	masterSecret string
	log *logrus.Logger

	signTicker      *time.Ticker
	submitTicker    *time.Ticker
	authorizeTicker *time.Ticker
	stopCh          chan struct{}
	signBusy        int32
	submitBusy      int32
	authorizeBusy   int32
}

// NewSettlementWorker builds a SettlementWorker. The URL maps let the test
// and production SRI environments (enums.EnvironmentTest/Prod) resolve to
// distinct SOAP endpoints. masterSecret decrypts signing credentials for
// the sign job, exactly as IssuanceService uses it for the synchronous path.
func NewSettlementWorker(
	db *gorm.DB,
	invoices *repositories.InvoiceRepository,
	ledgers *repositories.CreditLedgerRepository,
	issuers *repositories.IssuerRepository,
	structure *repositories.StructureRepository,
	notifier *Notifier,
	artifacts *ArtifactStore,
	receptionURL, authorizationURL map[enums.Environment]string,
	masterSecret string,
	log *logrus.Logger,
) *SettlementWorker {
	return &SettlementWorker{
		db:               db,
		invoices:         invoices,
		ledgers:          ledgers,
		issuers:          issuers,
		structure:        structure,
		notifier:         notifier,
		artifacts:        artifacts,
		soapClient:       &http.Client{Timeout: soapRequestTimeout},
		receptionURL:     receptionURL,
		authorizationURL: authorizationURL,
		masterSecret:     masterSecret,
		log:              log,
		stopCh:           make(chan struct{}),
	}
}

// Start launches the three ticker goroutines. Call Stop to shut them down
// during graceful server shutdown.
func (w *SettlementWorker) Start() {
	w.signTicker = time.NewTicker(signInterval)
	w.submitTicker = time.NewTicker(submitInterval)
	w.authorizeTicker = time.NewTicker(authorizeInterval)

	go func() {
		for {
			select {
			case <-w.signTicker.C:
				w.runSignTick()
			case <-w.stopCh:
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-w.submitTicker.C:
				w.runSubmitTick()
			case <-w.stopCh:
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-w.authorizeTicker.C:
				w.runAuthorizeTick()
			case <-w.stopCh:
				return
			}
		}
	}()

	w.log.Info("settlement worker started")
}

// Stop halts all three tickers. Safe to call once during shutdown.
func (w *SettlementWorker) Stop() {
	if w.signTicker != nil {
		w.signTicker.Stop()
	}
	if w.submitTicker != nil {
		w.submitTicker.Stop()
	}
	if w.authorizeTicker != nil {
		w.authorizeTicker.Stop()
	}
	close(w.stopCh)
	w.log.Info("settlement worker stopped")
}

func (w *SettlementWorker) runSignTick() {
	if !atomic.CompareAndSwapInt32(&w.signBusy, 0, 1) {
		w.log.Warn("settlement worker: sign tick skipped, previous tick still running")
		return
	}
	defer atomic.StoreInt32(&w.signBusy, 0)

	err := w.db.Transaction(func(tx *gorm.DB) error {
		batch, err := w.invoices.ClaimBatchForSigning(tx, maxBatchSize)
		if err != nil {
			return err
		}
		for i := range batch {
			w.SignAndCommitPending(tx, &batch[i])
		}
		return nil
	})
	if err != nil {
		w.log.WithError(err).Error("settlement worker: sign tick failed")
	}
}

func (w *SettlementWorker) runSubmitTick() {
	if !atomic.CompareAndSwapInt32(&w.submitBusy, 0, 1) {
		w.log.Warn("settlement worker: submit tick skipped, previous tick still running")
		return
	}
	defer atomic.StoreInt32(&w.submitBusy, 0)

	err := w.db.Transaction(func(tx *gorm.DB) error {
		batch, err := w.invoices.ClaimBatchForSubmission(tx, maxBatchSize)
		if err != nil {
			return err
		}
		for i := range batch {
			w.submitOne(tx, &batch[i])
		}
		return nil
	})
	if err != nil {
		w.log.WithError(err).Error("settlement worker: submit tick failed")
	}
}

func (w *SettlementWorker) runAuthorizeTick() {
	if !atomic.CompareAndSwapInt32(&w.authorizeBusy, 0, 1) {
		w.log.Warn("settlement worker: authorize tick skipped, previous tick still running")
		return
	}
	defer atomic.StoreInt32(&w.authorizeBusy, 0)

	err := w.db.Transaction(func(tx *gorm.DB) error {
		batch, err := w.invoices.ClaimBatchForAuthorization(tx, maxBatchSize)
		if err != nil {
			return err
		}
		for i := range batch {
			w.authorizeOne(tx, &batch[i])
		}
		return nil
	})
	if err != nil {
		w.log.WithError(err).Error("settlement worker: authorize tick failed")
	}
}

// submitOne dispatches one invoice's signed XML to the reception endpoint
// and advances its status according to the authority's response.
func (w *SettlementWorker) submitOne(tx *gorm.DB, invoice *models.Invoice) {
	endpoint := w.receptionURL[invoice.Environment]
	if endpoint == "" {
		w.markError(tx, invoice, "no reception endpoint configured for environment")
		return
	}

	signedXML, err := w.fetchArtifact(invoice.SignedXMLKey)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to load signed XML: %v", err))
		return
	}

	envelope := buildReceptionEnvelope(signedXML)
	resp, err := w.postSOAP(endpoint, envelope)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("reception request failed: %v", err))
		return
	}

	accepted, messages, err := parseReceptionResponse(resp)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("reception response unparseable: %v", err))
		return
	}

	invoice.SRIMessages = messages
	invoice.LastActionAt = time.Now()
	if accepted {
		invoice.Status = enums.InvoiceStatusReceived
	} else {
		invoice.Status = enums.InvoiceStatusRejected
	}

	if err := tx.Save(invoice).Error; err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to persist submission result")
		return
	}

	if invoice.Status.IsTerminal() {
		w.settleCredit(tx, invoice)
		w.notifier.NotifyTerminalStatus(invoice, messages)
	}
}

// SignAndCommitPending loads one PENDIENTE invoice's unsigned XML, signs it
// with the issuer's active credential, renders the RIDE, uploads both
// artifacts, and advances the row to InvoiceStatusSigned. Credit is not
// touched here: DebitPolicyOnAuthorization invoices queued through
// EnqueueInvoice are debited later, by settleCredit, once the authority
// returns a terminal verdict.
func (w *SettlementWorker) SignAndCommitPending(tx *gorm.DB, invoice *models.Invoice) {
	unsignedXML, err := w.fetchArtifact(invoice.UnsignedXMLKey)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to load unsigned XML: %v", err))
		return
	}

	cred, err := LoadActiveCredentialForIssuer(w.db, invoice.IssuerID, w.masterSecret)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to load signing credential: %v", err))
		return
	}

	signedXML, err := SignFacturaXML(unsignedXML, cred)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("signing failed: %v", err))
		return
	}

	issuer, err := w.issuers.FindByID(invoice.IssuerID)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to load issuer: %v", err))
		return
	}
	establishment, err := w.structure.FindEstablishmentByID(invoice.EstablishmentID)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to load establishment: %v", err))
		return
	}
	point, err := w.structure.FindEmissionPointByID(invoice.EmissionPointID)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to load emission point: %v", err))
		return
	}

	lines, summary := lineDetailsFromInvoice(invoice)
	var ride bytes.Buffer
	if err := RenderRIDE(&ride, ReceiptInvoice{
		AccessKey:         invoice.AccessKey,
		IssuerLegalName:   issuer.LegalName,
		IssuerRUC:         issuer.RUC,
		IssuerAddress:     establishment.Address,
		EstablishmentCode: establishment.Code,
		EmissionPointCode: point.Code,
		Sequential:        invoice.Sequence,
		CustomerName:      invoice.CustomerName,
		CustomerIDType:    invoice.CustomerIDType,
		CustomerIDNumber:  invoice.CustomerIDNumber,
		IssueDate:         invoice.IssueDate.Format("02/01/2006"),
		Lines:             lines,
		Summary:           summary,
		Status:            enums.InvoiceStatusSigned,
	}); err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("RIDE rendering failed: %v", err))
		return
	}

	xmlPath, err := w.artifacts.Put(context.Background(), artifactBucket, invoice.AccessKey+"/signed.xml", signedXML, "application/xml")
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to upload signed XML: %v", err))
		return
	}
	pdfPath, err := w.artifacts.Put(context.Background(), artifactBucket, invoice.AccessKey+"/ride.pdf", ride.Bytes(), "application/pdf")
	if err != nil {
		if bucket, key, ok := splitArtifactPath(xmlPath); ok {
			_ = w.artifacts.Delete(context.Background(), bucket, key)
		}
		w.retryOrFail(tx, invoice, fmt.Sprintf("failed to upload RIDE: %v", err))
		return
	}

	invoice.SignedXMLKey = xmlPath
	invoice.RideKey = pdfPath
	invoice.Status = enums.InvoiceStatusSigned
	invoice.LastActionAt = time.Now()

	if err := tx.Save(invoice).Error; err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to persist signed invoice")
	}
}

// lineDetailsFromInvoice rebuilds the LineDetail/TaxSummary shapes RenderRIDE
// expects from a persisted Invoice and its preloaded Lines, since the sign
// job only has the database row, not the original IssueInvoiceInput that
// ComputeTaxes ran against at enqueue time.
func lineDetailsFromInvoice(invoice *models.Invoice) ([]LineDetail, TaxSummary) {
	lines := make([]LineDetail, 0, len(invoice.Lines))
	for _, l := range invoice.Lines {
		lines = append(lines, LineDetail{
			ProductCode: l.ProductCode,
			Description: l.Description,
			Cantidad:    l.Quantity,
			PrecioUnit:  l.UnitPrice,
			Descuento:   l.Discount,
			Base:        l.LineTotal - l.TaxAmount,
			TaxCode:     l.TaxCode,
			TarifaIVA:   l.TaxRate,
			Valor:       l.TaxAmount,
			LineTotal:   l.LineTotal,
		})
	}

	summary := TaxSummary{
		TotalSinImpuestos: invoice.Subtotal0 + invoice.SubtotalIVA,
		TotalDescuento:    invoice.TotalDiscount,
		TotalIVA:          invoice.TotalIVA,
		ImporteTotal:      invoice.TotalAmount,
		Subtotal0:         invoice.Subtotal0,
		SubtotalIVA:       invoice.SubtotalIVA,
	}

	return lines, summary
}

// authorizeOne polls the authorization endpoint for one invoice already
// acknowledged as received, and advances it to Authorized or Rejected.
func (w *SettlementWorker) authorizeOne(tx *gorm.DB, invoice *models.Invoice) {
	endpoint := w.authorizationURL[invoice.Environment]
	if endpoint == "" {
		w.markError(tx, invoice, "no authorization endpoint configured for environment")
		return
	}

	envelope := buildAuthorizationEnvelope(invoice.AccessKey)
	resp, err := w.postSOAP(endpoint, envelope)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("authorization request failed: %v", err))
		return
	}

	authorized, authNumber, authorizedAt, authorizedXML, messages, err := parseAuthorizationResponse(resp)
	if err != nil {
		w.retryOrFail(tx, invoice, fmt.Sprintf("authorization response unparseable: %v", err))
		return
	}

	invoice.SRIMessages = messages
	invoice.LastActionAt = time.Now()
	if authorized {
		invoice.Status = enums.InvoiceStatusAuthorized
		invoice.AuthorizationNumber = &authNumber
		invoice.AuthorizedAt = &authorizedAt

		if len(authorizedXML) > 0 {
			if issuer, err := w.issuers.FindByID(invoice.IssuerID); err == nil {
				key := authorizedXMLKey(issuer.RUC, invoice.AccessKey)
				if path, err := w.artifacts.Put(context.Background(), artifactBucket, key, authorizedXML, "application/xml"); err == nil {
					invoice.SignedXMLKey = path
				} else {
					w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to upload authorized XML")
				}
			} else {
				w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to load issuer for authorized XML upload")
			}
		}
	} else {
		invoice.Status = enums.InvoiceStatusNotAuthorize
	}

	if err := tx.Save(invoice).Error; err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to persist authorization result")
		return
	}

	w.settleCredit(tx, invoice)
	w.notifier.NotifyTerminalStatus(invoice, messages)
}

// authorizedXMLKey builds the object key the authority-stamped comprobante
// is re-uploaded under once AUTORIZADO, namespaced by RUC so two issuers
// sharing the artifact bucket never collide on access key alone.
func authorizedXMLKey(ruc, accessKey string) string {
	return fmt.Sprintf("authorized/%s/%s.xml", ruc, accessKey)
}

// settleCredit performs the lazy debit owed by invoices created under
// DebitPolicyOnAuthorization once the authority's terminal verdict is in.
// Eager-policy invoices were already debited at emission and are untouched.
func (w *SettlementWorker) settleCredit(tx *gorm.DB, invoice *models.Invoice) {
	if invoice.DebitPolicy != enums.DebitPolicyOnAuthorization || invoice.DebitedAt != nil {
		return
	}
	if invoice.Status != enums.InvoiceStatusAuthorized {
		return
	}

	ledger, err := w.ledgers.FindByIssuerIDForUpdate(tx, invoice.IssuerID)
	if err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to load ledger for deferred debit")
		return
	}

	invoiceID := invoice.ID
	if err := ledger.Debit(tx, 1, &invoiceID, "deferred invoice debit on authorization"); err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: deferred debit failed")
		return
	}

	now := time.Now()
	invoice.DebitedAt = &now
	if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("debited_at", now).Error; err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to persist debited_at")
	}
}

// retryOrFail bumps an invoice's retry count on a transient transport or
// parse failure, moving it to InvoiceStatusError once maxRetries is spent
// so it stops being reclaimed every tick.
func (w *SettlementWorker) retryOrFail(tx *gorm.DB, invoice *models.Invoice, reason string) {
	invoice.RetryCount++
	invoice.LastActionAt = time.Now()
	invoice.SRIMessages = reason

	if invoice.RetryCount >= maxRetries {
		invoice.Status = enums.InvoiceStatusError
	}

	if err := tx.Save(invoice).Error; err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to persist retry state")
		return
	}

	w.log.WithFields(logrus.Fields{
		"invoice_id":  invoice.ID,
		"retry_count": invoice.RetryCount,
		"reason":      reason,
	}).Warn("settlement worker: tick failed for invoice")

	if invoice.Status == enums.InvoiceStatusError {
		w.notifier.NotifyTerminalStatus(invoice, reason)
	}
}

func (w *SettlementWorker) markError(tx *gorm.DB, invoice *models.Invoice, reason string) {
	invoice.Status = enums.InvoiceStatusError
	invoice.SRIMessages = reason
	invoice.LastActionAt = time.Now()
	if err := tx.Save(invoice).Error; err != nil {
		w.log.WithError(err).WithField("invoice_id", invoice.ID).Error("settlement worker: failed to persist error state")
	}
	w.notifier.NotifyTerminalStatus(invoice, reason)
}

// fetchArtifact reads back the bytes behind a canonical "<bucket>/<key>"
// storage path previously returned by ArtifactStore.Put.
func (w *SettlementWorker) fetchArtifact(path string) ([]byte, error) {
	bucket, key, ok := splitArtifactPath(path)
	if !ok {
		return nil, fmt.Errorf("malformed artifact path %q", path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), soapRequestTimeout)
	defer cancel()

	obj, err := w.artifacts.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

func (w *SettlementWorker) postSOAP(endpoint string, envelope []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), soapRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := w.soapClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("soap endpoint returned status %d", resp.StatusCode)
	}
	return buf.Bytes(), nil
}

// soapEnvelope is the minimal wrapper every request to the authority's web
// service shares.
type soapEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	XMLNSSoap string `xml:"xmlns:soapenv,attr"`
	Body    soapBody `xml:"soapenv:Body"`
}

type soapBody struct {
	InnerXML []byte `xml:",innerxml"`
}

func buildReceptionEnvelope(signedXML []byte) []byte {
	inner := fmt.Sprintf(`<ec:validarComprobante xmlns:ec="http://ec.gob.sri.ws.recepcion"><xml>%s</xml></ec:validarComprobante>`,
		xmlEscape(signedXML))
	env := soapEnvelope{XMLNSSoap: "http://schemas.xmlsoap.org/soap/envelope/", Body: soapBody{InnerXML: []byte(inner)}}
	out, _ := xml.Marshal(env)
	return out
}

func buildAuthorizationEnvelope(accessKey string) []byte {
	inner := fmt.Sprintf(`<ec:autorizacionComprobante xmlns:ec="http://ec.gob.sri.ws.autorizacion"><claveAccesoComprobante>%s</claveAccesoComprobante></ec:autorizacionComprobante>`,
		accessKey)
	env := soapEnvelope{XMLNSSoap: "http://schemas.xmlsoap.org/soap/envelope/", Body: soapBody{InnerXML: []byte(inner)}}
	out, _ := xml.Marshal(env)
	return out
}

func xmlEscape(b []byte) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, b)
	return buf.String()
}

// parseReceptionResponse extracts acceptance and any authority-reported
// messages from a reception SOAP response. A minimal structural parse is
// used since the authority's WSDL response shape is a fixed, small surface.
func parseReceptionResponse(body []byte) (accepted bool, messages string, err error) {
	var env struct {
		Body struct {
			Response struct {
				Estado   string `xml:"RespuestaSolicitud>estado"`
				Mensajes string `xml:",innerxml"`
			} `xml:",any"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(body, &env); err != nil {
		return false, "", err
	}
	accepted = env.Body.Response.Estado == "RECIBIDA"
	return accepted, env.Body.Response.Mensajes, nil
}

// parseAuthorizationResponse extracts the authorization verdict, number,
// timestamp, and (when AUTORIZADO) the authority's own copy of the signed
// comprobante XML from an authorization SOAP response. The authority embeds
// that XML verbatim inside <comprobante>, CDATA-wrapped; authorizeOne
// re-uploads it so xml_path always points at the authority-stamped version,
// not just the signer's own copy.
func parseAuthorizationResponse(body []byte) (authorized bool, authNumber string, authorizedAt time.Time, authorizedXML []byte, messages string, err error) {
	var env struct {
		Body struct {
			Response struct {
				Autorizaciones struct {
					Autorizacion struct {
						Estado             string `xml:"estado"`
						NumeroAutorizacion string `xml:"numeroAutorizacion"`
						FechaAutorizacion  string `xml:"fechaAutorizacion"`
						Comprobante        string `xml:"comprobante"`
						Mensajes           string `xml:",innerxml"`
					} `xml:"autorizacion"`
				} `xml:"RespuestaAutorizacionComprobante>autorizaciones"`
			} `xml:",any"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(body, &env); err != nil {
		return false, "", time.Time{}, nil, "", err
	}

	auth := env.Body.Response.Autorizaciones.Autorizacion
	authorized = auth.Estado == "AUTORIZADO"
	authNumber = auth.NumeroAutorizacion

	at := time.Now()
	if auth.FechaAutorizacion != "" {
		if parsed, perr := time.Parse(time.RFC3339, auth.FechaAutorizacion); perr == nil {
			at = parsed
		}
	}

	if authorized && strings.TrimSpace(auth.Comprobante) != "" {
		authorizedXML = []byte(auth.Comprobante)
	}

	return authorized, authNumber, at, authorizedXML, auth.Mensajes, nil
}
