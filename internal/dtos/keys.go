/*
Package dtos - API Key Management Data Transfer Objects

==============================================================================
FILE: internal/dtos/keys.go
==============================================================================
*/
package dtos

import "time"

// CreateApiKeyRequest is the body of POST /keys.
type CreateApiKeyRequest struct {
	Name   string `json:"name" binding:"required"`
	Scopes string `json:"scopes"`
}

// CreateApiKeyResponse carries the plaintext key exactly once.
type CreateApiKeyResponse struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Prefix    string `json:"prefix"`
	Name      string `json:"name"`
	Scopes    string `json:"scopes"`
}

// ApiKeySummary is one row of GET /keys, never carrying the plaintext or
// hashed secret.
type ApiKeySummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Scopes     string     `json:"scopes"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
