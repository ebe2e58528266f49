package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"backend/internal/models"
)

// NotifierWebhookTimeout bounds a single outbound webhook POST, matching the
// settlement worker's 5 s budget for caller notification.
const NotifierWebhookTimeout = 5 * time.Second

// Notifier delivers a webhook POST to an issuer's registered CallerProfile
// whenever an invoice reaches a terminal status. Failures are logged and
// swallowed: a caller's unreachable endpoint must never block the
// Settlement Worker from recording the invoice's terminal state.
type Notifier struct {
	db     *gorm.DB
	client *http.Client
	log    *logrus.Logger
}

// NewNotifier builds a Notifier sharing the given database handle and
// logger, with its own short-timeout HTTP client independent of any
// SOAP client used for SRI communication.
func NewNotifier(db *gorm.DB, log *logrus.Logger) *Notifier {
	return &Notifier{
		db:     db,
		client: &http.Client{Timeout: NotifierWebhookTimeout},
		log:    log,
	}
}

// invoiceWebhookPayload is the JSON body POSTed to the caller's webhook URL.
type invoiceWebhookPayload struct {
	IssuerID    uuid.UUID `json:"user_uid"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	ClaveAcceso string    `json:"clave_acceso"`
	Estado      string    `json:"estado"`
	MensajeSRI  string    `json:"mensaje_sri,omitempty"`
	Fecha       string    `json:"fecha"`
}

// NotifyTerminalStatus looks up the issuer's active CallerProfile and, if
// one is registered with a webhook URL, POSTs the invoice's final outcome.
// Returns nil even on delivery failure; callers that need the failure
// recorded should inspect the logged error through their own log pipeline.
func (n *Notifier) NotifyTerminalStatus(invoice *models.Invoice, message string) {
	var profile models.CallerProfile
	err := n.db.Where("issuer_id = ? AND is_active = ?", invoice.IssuerID, true).First(&profile).Error
	if err == gorm.ErrRecordNotFound || profile.WebhookURL == "" {
		return
	}
	if err != nil {
		n.log.WithError(err).WithField("issuer_id", invoice.IssuerID).Warn("notifier: failed to look up caller profile")
		return
	}

	payload := invoiceWebhookPayload{
		IssuerID:    invoice.IssuerID,
		InvoiceID:   invoice.ID,
		ClaveAcceso: invoice.AccessKey,
		Estado:      string(invoice.Status),
		MensajeSRI:  message,
		Fecha:       time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.log.WithError(err).Warn("notifier: failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequest(http.MethodPost, profile.WebhookURL, bytes.NewReader(body))
	if err != nil {
		n.log.WithError(err).WithField("webhook_url", profile.WebhookURL).Warn("notifier: failed to build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if profile.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Signature", signPayload(body, profile.WebhookSecret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"invoice_id":  invoice.ID,
			"webhook_url": profile.WebhookURL,
		}).Warn("notifier: webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.WithFields(logrus.Fields{
			"invoice_id":  invoice.ID,
			"webhook_url": profile.WebhookURL,
			"status_code": resp.StatusCode,
		}).Warn("notifier: webhook endpoint returned non-2xx")
	}
}

func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("sha256=%x", mac.Sum(nil))
}
