/*
Package dtos - Internal Automation Data Transfer Objects

==============================================================================
FILE: internal/dtos/admin.go
==============================================================================
*/
package dtos

import "time"

// TopupCreditsRequest is the body of POST /admin/credits/topup, gated
// behind the X-N8N-Key shared secret rather than issuer session auth.
type TopupCreditsRequest struct {
	IssuerRUC string `json:"issuer_ruc" binding:"required,len=13"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"required"`
}

// TopupCreditsResponse confirms the new balance after an administrative
// credit grant.
type TopupCreditsResponse struct {
	IssuerRUC  string `json:"issuer_ruc"`
	Delta      int64  `json:"delta"`
	NewBalance int64  `json:"new_balance"`
}

// UploadCredentialRequest carries the multipart-accompanying fields for
// POST /emitter/upload-p12; the .p12 file itself arrives as a multipart
// file part named "certificate".
type UploadCredentialRequest struct {
	Password string `form:"password" binding:"required"`
}

// CredentialStatusResponse reports an issuer's active signing credential
// without ever exposing key material.
type CredentialStatusResponse struct {
	SubjectCN  string    `json:"subject_cn"`
	SubjectRUC string    `json:"subject_ruc"`
	NotBefore  time.Time `json:"not_before"`
	NotAfter   time.Time `json:"not_after"`
}
