package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func selfSignedCertWithUsage(t *testing.T, cn string, usage x509.KeyUsage, isCA bool) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, SerialNumber: "1790011674001"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              usage,
		IsCA:                  isCA,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func certBag(t *testing.T, cert *x509.Certificate, headers map[string]string) p12Bag {
	t.Helper()
	return p12Bag{
		block: &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw, Headers: headers},
		cert:  cert,
	}
}

func keyBag(t *testing.T, key *rsa.PrivateKey, headers map[string]string) p12Bag {
	t.Helper()
	return p12Bag{
		block: &pem.Block{Type: "PRIVATE KEY", Headers: headers},
		key:   key,
	}
}

func TestSelectSigningCertificate_PrefersDigitalSignatureAndNonRepudiation(t *testing.T) {
	decryptCert, _ := selfSignedCertWithUsage(t, "decrypt", x509.KeyUsageDataEncipherment, false)
	signCert, _ := selfSignedCertWithUsage(t, "sign", x509.KeyUsageDigitalSignature|x509.KeyUsageContentCommitment, false)

	bags := []p12Bag{certBag(t, decryptCert, nil), certBag(t, signCert, nil)}
	chosen := selectSigningCertificate(bags)

	require.Equal(t, "sign", chosen.cert.Subject.CommonName)
}

func TestSelectSigningCertificate_FallsBackToDigitalSignatureAlone(t *testing.T) {
	other, _ := selfSignedCertWithUsage(t, "other", x509.KeyUsageKeyEncipherment, false)
	signOnly, _ := selfSignedCertWithUsage(t, "sign-only", x509.KeyUsageDigitalSignature, false)

	bags := []p12Bag{certBag(t, other, nil), certBag(t, signOnly, nil)}
	chosen := selectSigningCertificate(bags)

	require.Equal(t, "sign-only", chosen.cert.Subject.CommonName)
}

func TestSelectSigningCertificate_FallsBackToFirstWhenNoUsageMatches(t *testing.T) {
	first, _ := selfSignedCertWithUsage(t, "first", x509.KeyUsageKeyEncipherment, false)
	second, _ := selfSignedCertWithUsage(t, "second", x509.KeyUsageDataEncipherment, false)

	bags := []p12Bag{certBag(t, first, nil), certBag(t, second, nil)}
	chosen := selectSigningCertificate(bags)

	require.Equal(t, "first", chosen.cert.Subject.CommonName)
}

func TestSelectMatchingKey_SingleKeyHasNothingToChoose(t *testing.T) {
	_, key := selfSignedCertWithUsage(t, "sign", x509.KeyUsageDigitalSignature, false)
	only := keyBag(t, key, nil)

	chosen := selectMatchingKey(p12Bag{}, []p12Bag{only})
	require.Equal(t, key, chosen.key)
}

func TestSelectMatchingKey_MatchesByLocalKeyId(t *testing.T) {
	cert, wantKey := selfSignedCertWithUsage(t, "sign", x509.KeyUsageDigitalSignature, false)
	_, otherKey := selfSignedCertWithUsage(t, "other", x509.KeyUsageDigitalSignature, false)

	signingBag := certBag(t, cert, map[string]string{"localKeyId": "abc"})
	keys := []p12Bag{
		keyBag(t, otherKey, map[string]string{"localKeyId": "xyz"}),
		keyBag(t, wantKey, map[string]string{"localKeyId": "abc"}),
	}

	chosen := selectMatchingKey(signingBag, keys)
	require.Equal(t, wantKey, chosen.key)
}

func TestSelectMatchingKey_FallsBackToFriendlyNameHeuristic(t *testing.T) {
	cert, wantKey := selfSignedCertWithUsage(t, "sign", x509.KeyUsageDigitalSignature, false)
	_, otherKey := selfSignedCertWithUsage(t, "other", x509.KeyUsageDigitalSignature, false)

	signingBag := certBag(t, cert, nil)
	keys := []p12Bag{
		keyBag(t, otherKey, map[string]string{"friendlyName": "decryption key"}),
		keyBag(t, wantKey, map[string]string{"friendlyName": "Signing Key"}),
	}

	chosen := selectMatchingKey(signingBag, keys)
	require.Equal(t, wantKey, chosen.key)
}

func TestSelectMatchingKey_FallsBackToLastBag(t *testing.T) {
	cert, _ := selfSignedCertWithUsage(t, "sign", x509.KeyUsageDigitalSignature, false)
	_, firstKey := selfSignedCertWithUsage(t, "first", x509.KeyUsageDigitalSignature, false)
	_, lastKey := selfSignedCertWithUsage(t, "last", x509.KeyUsageDigitalSignature, false)

	signingBag := certBag(t, cert, nil)
	keys := []p12Bag{keyBag(t, firstKey, nil), keyBag(t, lastKey, nil)}

	chosen := selectMatchingKey(signingBag, keys)
	require.Equal(t, lastKey, chosen.key)
}

func TestExtractRUC_FromSubjectSerialNumber(t *testing.T) {
	cert, _ := selfSignedCertWithUsage(t, "sign", x509.KeyUsageDigitalSignature, false)
	require.Equal(t, "1790011674001", extractRUC(cert))
}

func TestEncryptDecryptCredentialPassword_RoundTrips(t *testing.T) {
	stored, err := EncryptCredentialPassword("s3cr3t-pass", "master-key")
	require.NoError(t, err)

	plain, err := DecryptCredentialPassword(stored, "master-key")
	require.NoError(t, err)
	require.Equal(t, "s3cr3t-pass", plain)
}

func TestDecryptCredentialPassword_FailsClosedOnWrongKey(t *testing.T) {
	stored, err := EncryptCredentialPassword("s3cr3t-pass", "master-key")
	require.NoError(t, err)

	_, err = DecryptCredentialPassword(stored, "wrong-key")
	require.Error(t, err)
}

func TestDecryptCredentialPassword_RejectsMalformedStoredValue(t *testing.T) {
	_, err := DecryptCredentialPassword("not-a-valid-payload", "master-key")
	require.Error(t, err)
}

func TestEncryptDecryptP12Blob_RoundTrips(t *testing.T) {
	original := []byte("pretend pkcs12 container bytes")

	ciphertext, iv, err := EncryptP12Blob(original, "master-key")
	require.NoError(t, err)
	require.NotEqual(t, original, ciphertext)

	plain, err := DecryptP12Blob(ciphertext, iv, "master-key")
	require.NoError(t, err)
	require.Equal(t, original, plain)
}

func TestDecryptP12Blob_FailsClosedOnTamperedCiphertext(t *testing.T) {
	ciphertext, iv, err := EncryptP12Blob([]byte("container bytes"), "master-key")
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = DecryptP12Blob(ciphertext, iv, "master-key")
	require.Error(t, err)
}

func TestPkcs7PadUnpad_RoundTrips(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		padded := pkcs7Pad(data, 16)
		require.Equal(t, 0, len(padded)%16)

		unpadded, err := pkcs7Unpad(padded)
		require.NoError(t, err)
		require.Equal(t, data, unpadded)
	}
}
