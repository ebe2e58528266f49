/*
Package services - PKCS#12 signing credential store

==============================================================================
FILE: internal/services/credential_store.go
==============================================================================

DESCRIPTION:
    Loads an issuer's PKCS#12 signing container, selects the certificate and
    private key the XAdES-BES signer must use, extracts and cross-checks the
    issuer's RUC against the certificate, and encrypts the unlock password
    at rest. Consolidates what used to be two overlapping selection
    routines into a single component with a documented priority order.

SYNTAX EXPLANATION:
    - pkcs12.ToPEM decodes every safe-bag in the container to PEM blocks,
      preserving "friendlyName"/"localKeyId" PEM headers where present.
    - x509.Certificate.KeyUsage is a bitmask; KeyUsageDigitalSignature and
      KeyUsageContentCommitment (nonRepudiation) select the signing cert.

==============================================================================
*/
package services

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pkcs12"
	"gorm.io/gorm"

	"backend/internal/errors"
	"backend/internal/models"
)

// Two proprietary OIDs the Ecuadorian CAs have been observed to carry the
// taxpayer RUC under, tried before falling back to the subject serialNumber
// attribute.
var rucExtensionOIDs = []string{
	"1.3.6.1.4.1.37947.3.3", // Security Data
	"2.16.76.1.3.3",         // ANF / BCE legacy
}

var rucDigitsPattern = regexp.MustCompile(`\d{13}`)

// Credential is the result of loading and selecting from a PKCS#12
// container: the signing certificate, its matching private key, the full
// chain (signing cert first), and the RUC the certificate attests to.
type Credential struct {
	SigningCert *x509.Certificate
	Chain       []*x509.Certificate
	PrivateKey  *rsa.PrivateKey
	RUC         string
	NotBefore   time.Time
	NotAfter    time.Time
}

// p12Bag is one decoded PEM block from the container, retaining the
// friendlyName/localKeyId headers pkcs12.ToPEM preserves from the original
// safe bag so certificate/key pairing can use them.
type p12Bag struct {
	block *pem.Block
	cert  *x509.Certificate // non-nil if this bag held a certificate
	key   *rsa.PrivateKey   // non-nil if this bag held a private key
}

// LoadCredential decodes a PKCS#12 blob, selects the signing certificate and
// its private key per the documented priority order, and validates the
// certificate's validity window and RUC against expectedRUC (empty skips
// the check, used when onboarding a credential before the issuer's RUC is
// confirmed).
func LoadCredential(p12Bytes []byte, password string, expectedRUC string) (*Credential, error) {
	pemBlocks, err := pkcs12.ToPEM(p12Bytes, password)
	if err != nil {
		return nil, errors.ErrCredentialUndecryptable.WithMessage(fmt.Sprintf("failed to decode PKCS#12: %v", err))
	}

	var bags []p12Bag
	for _, block := range pemBlocks {
		bag := p12Bag{block: block}
		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				continue // skip malformed bag rather than fail the whole container
			}
			bag.cert = cert
		case "PRIVATE KEY":
			key, err := parseRSAPrivateKey(block.Bytes)
			if err != nil {
				continue
			}
			bag.key = key
		}
		bags = append(bags, bag)
	}

	var certBags, caCertBags, keyBags []p12Bag
	for _, b := range bags {
		switch {
		case b.cert != nil && b.cert.IsCA:
			caCertBags = append(caCertBags, b)
		case b.cert != nil:
			certBags = append(certBags, b)
		case b.key != nil:
			keyBags = append(keyBags, b)
		}
	}

	if len(certBags) == 0 {
		return nil, errors.ErrCredentialUndecryptable.WithMessage("no non-CA certificate found in PKCS#12 container")
	}
	if len(keyBags) == 0 {
		return nil, errors.ErrCredentialUndecryptable.WithMessage("no private key found in PKCS#12 container")
	}

	signingBag := selectSigningCertificate(certBags)
	keyBag := selectMatchingKey(signingBag, keyBags)

	chain := []*x509.Certificate{signingBag.cert}
	for _, b := range caCertBags {
		chain = append(chain, b.cert)
	}

	ruc := extractRUC(signingBag.cert)
	if expectedRUC != "" && ruc != "" && onlyDigits(expectedRUC) != ruc {
		return nil, errors.ErrRucMismatch.WithMessage(
			fmt.Sprintf("certificate carries RUC %s, expected %s", ruc, expectedRUC))
	}

	return &Credential{
		SigningCert: signingBag.cert,
		Chain:       chain,
		PrivateKey:  keyBag.key,
		RUC:         ruc,
		NotBefore:   signingBag.cert.NotBefore,
		NotAfter:    signingBag.cert.NotAfter,
	}, nil
}

// selectSigningCertificate applies the documented priority order: a
// non-CA cert with both digitalSignature and nonRepudiation set wins; else
// one with digitalSignature alone; else the first non-CA certificate.
// Central-bank-issued containers typically carry two certificates (one for
// decryption, one for signing); private CAs typically carry one.
func selectSigningCertificate(certBags []p12Bag) p12Bag {
	const bothBits = x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment

	for _, b := range certBags {
		if b.cert.KeyUsage&bothBits == bothBits {
			return b
		}
	}
	for _, b := range certBags {
		if b.cert.KeyUsage&x509.KeyUsageDigitalSignature != 0 {
			return b
		}
	}
	return certBags[0]
}

// selectMatchingKey pairs the chosen signing certificate with its private
// key. With a single key in the container there is nothing to choose; with
// several, match by localKeyId, then by a "signing key" friendly-name
// heuristic, then fall back to the last key bag (the empirically observed
// ordering puts the decryption key first, signing key last).
func selectMatchingKey(cert p12Bag, keyBags []p12Bag) p12Bag {
	if len(keyBags) == 1 {
		return keyBags[0]
	}

	certKeyID := cert.block.Headers["localKeyId"]
	if certKeyID != "" {
		for _, k := range keyBags {
			if k.block.Headers["localKeyId"] == certKeyID {
				return k
			}
		}
	}

	for _, k := range keyBags {
		if strings.Contains(strings.ToLower(k.block.Headers["friendlyName"]), "signing key") {
			return k
		}
	}

	return keyBags[len(keyBags)-1]
}

// extractRUC looks up the known proprietary OIDs first, falling back to a
// 13-digit scan of the subject's serialNumber attribute (OID 2.5.4.5).
func extractRUC(cert *x509.Certificate) string {
	for _, oidStr := range rucExtensionOIDs {
		for _, ext := range cert.Extensions {
			if ext.Id.String() == oidStr {
				if m := rucDigitsPattern.FindString(string(ext.Value)); m != "" {
					return m
				}
			}
		}
	}

	for _, name := range cert.Subject.Names {
		if name.Type.String() == "2.5.4.5" { // serialNumber attribute
			if s, ok := name.Value.(string); ok {
				if m := rucDigitsPattern.FindString(s); m != "" {
					return m
				}
			}
		}
	}

	if m := rucDigitsPattern.FindString(cert.Subject.SerialNumber); m != "" {
		return m
	}
	return ""
}

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}

// LoadActiveCredentialForIssuer fetches the issuer's active SigningCredential
// row, decrypts its P12 blob and unlock password under masterSecret, and
// returns the selected signing certificate/key pair. The PKCS#12 unlock is
// performed fresh on every call rather than cached, by design: the
// decrypted private key is never kept resident longer than a single
// signing operation.
func LoadActiveCredentialForIssuer(db *gorm.DB, issuerID uuid.UUID, masterSecret string) (*Credential, error) {
	var row models.SigningCredential
	err := db.Where("issuer_id = ? AND is_active = ?", issuerID, true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.ErrNoActiveSigningCredential
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	if row.IsExpired(time.Now()) {
		return nil, errors.ErrSigningCredentialExpired
	}

	p12Bytes, err := DecryptP12Blob(row.EncryptedP12, row.EncryptionIV, masterSecret)
	if err != nil {
		return nil, err
	}

	password, err := DecryptCredentialPassword(row.EncryptedPassword, masterSecret)
	if err != nil {
		return nil, err
	}

	return LoadCredential(p12Bytes, password, row.SubjectRUC)
}

// EncryptCredentialPassword encrypts a plaintext PKCS#12 unlock password
// with AES-256-CBC under key=SHA-256(masterSecret), returning
// "ivHex:ciphertextHex" for storage alongside the credential row.
func EncryptCredentialPassword(plaintext, masterSecret string) (string, error) {
	key := sha256.Sum256([]byte(masterSecret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", errors.Wrap(err, errors.ErrInternal)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptCredentialPassword reverses EncryptCredentialPassword. Any
// decryption failure (malformed payload, wrong key, bad padding) fails
// closed with CredentialUndecryptable rather than falling back to treating
// the stored value as plaintext, which a prior implementation did as a
// legacy-compatibility hack this service does not preserve.
func DecryptCredentialPassword(stored, masterSecret string) (string, error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return "", errors.ErrCredentialUndecryptable.WithMessage("stored password is not in iv:ciphertext form")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", errors.ErrCredentialUndecryptable.WithMessage("malformed iv")
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", errors.ErrCredentialUndecryptable.WithMessage("malformed ciphertext")
	}

	key := sha256.Sum256([]byte(masterSecret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", errors.ErrCredentialUndecryptable.WithMessage("padding check failed, wrong key or corrupted value")
	}
	return string(unpadded), nil
}

// EncryptP12Blob encrypts the raw PKCS#12 file bytes for storage in
// SigningCredential.EncryptedP12/EncryptionIV, under the same
// key=SHA-256(masterSecret) derivation as EncryptCredentialPassword. The IV
// is returned separately rather than prefixed, matching the model's
// two-column storage shape.
func EncryptP12Blob(p12Bytes []byte, masterSecret string) (ciphertext, iv []byte, err error) {
	key := sha256.Sum256([]byte(masterSecret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInternal)
	}

	padded := pkcs7Pad(p12Bytes, aes.BlockSize)

	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrInternal)
	}

	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, iv, nil
}

// DecryptP12Blob reverses EncryptP12Blob. Unlike the legacy password path
// in DecryptCredentialPassword, there is no ambiguous-legacy-value concern
// here since EncryptedP12 never held plaintext; any failure fails closed.
func DecryptP12Blob(ciphertext, iv []byte, masterSecret string) ([]byte, error) {
	if len(iv) != aes.BlockSize {
		return nil, errors.ErrCredentialUndecryptable.WithMessage("malformed iv")
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.ErrCredentialUndecryptable.WithMessage("malformed ciphertext")
	}

	key := sha256.Sum256([]byte(masterSecret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return nil, errors.ErrCredentialUndecryptable.WithMessage("padding check failed, wrong key or corrupted value")
	}
	return unpadded, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("invalid padding length")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
