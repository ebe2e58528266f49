package services

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"
	"time"

	"backend/internal/models/enums"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

func selfSignedCredential(t *testing.T) *Credential {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "ACME SA",
			Organization: []string{"ACME SA"},
			Country:      []string{"EC"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Credential{
		SigningCert: cert,
		Chain:       []*x509.Certificate{cert},
		PrivateKey:  key,
		RUC:         "1790011674001",
	}
}

func sampleUnsignedXML(t *testing.T) []byte {
	t.Helper()

	taxes, err := ComputeTaxes([]LineInput{
		{ProductCode: "SKU-1", Description: "widget", Cantidad: 2, PrecioUnit: 10, TarifaIVA: 15},
	}, false)
	require.NoError(t, err)

	xmlBytes, err := AssembleFacturaXML(
		IssuerInfo{RUC: "1790011674001", LegalName: "ACME SA", Environment: enums.EnvironmentTest, MainAddress: "Av. Principal"},
		EmissionInfo{EstablishmentCode: "001", EmissionPointCode: "001", EstablishmentAddr: "Av. Principal", Sequence: 1, AccessKey: strings.Repeat("1", 49), IssueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		CustomerInfo{Name: "Juan Perez", IDType: "05", IDNumber: "1713175071"},
		taxes,
	)
	require.NoError(t, err)
	return xmlBytes
}

func TestSignFacturaXML_AppendsSignatureAsLastChild(t *testing.T) {
	cred := selfSignedCredential(t)
	unsigned := sampleUnsignedXML(t)

	signed, err := SignFacturaXML(unsigned, cred)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()

	children := root.ChildElements()
	require.NotEmpty(t, children)
	last := children[len(children)-1]
	require.Equal(t, "Signature", last.Tag)
	require.Equal(t, "Signature", last.SelectAttrValue("Id", ""))
}

func TestSignFacturaXML_SignedInfoReferencesAndDigestsAreConsistent(t *testing.T) {
	cred := selfSignedCredential(t)
	unsigned := sampleUnsignedXML(t)

	signed, err := SignFacturaXML(unsigned, cred)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()

	sigEl := root.FindElement("Signature")
	require.NotNil(t, sigEl)

	signedInfo := sigEl.FindElement("SignedInfo")
	require.NotNil(t, signedInfo)

	refs := signedInfo.FindElements("Reference")
	require.Len(t, refs, 2)

	refA, refB := refs[0], refs[1]
	require.Equal(t, "", refA.SelectAttrValue("URI", "missing"))
	require.Equal(t, "#"+signedPropertiesID, refB.SelectAttrValue("URI", ""))
	require.Equal(t, signedPropertiesType, refB.SelectAttrValue("Type", ""))

	c14n := MakeC14N10RecCanonicalizer()

	signedProps := sigEl.FindElement("Object/QualifyingProperties/SignedProperties")
	require.NotNil(t, signedProps)
	recomputedPropsDigest, err := digestElement(signedProps, c14n)
	require.NoError(t, err)
	require.Equal(t, recomputedPropsDigest, refB.FindElement("DigestValue").Text())

	wantRootDigest := refA.FindElement("DigestValue").Text()

	// Reference A's enveloped-signature transform strips the Signature
	// element before digesting, so recompute against the document with it
	// removed rather than the fully-signed tree.
	root.RemoveChild(sigEl)
	recomputedRootDigest, err := digestElement(root, c14n)
	require.NoError(t, err)
	require.Equal(t, wantRootDigest, recomputedRootDigest)
}

func TestSignFacturaXML_SignatureValueVerifiesAgainstKeyInfo(t *testing.T) {
	cred := selfSignedCredential(t)
	unsigned := sampleUnsignedXML(t)

	signed, err := SignFacturaXML(unsigned, cred)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	sigEl := root.FindElement("Signature")
	signedInfo := sigEl.FindElement("SignedInfo")

	c14n := MakeC14N10RecCanonicalizer()
	canon, err := c14n.Canonicalize(signedInfo)
	require.NoError(t, err)
	hashed := sha256.Sum256(canon)

	sigValueB64 := sigEl.FindElement("SignatureValue").Text()
	sigBytes, err := base64.StdEncoding.DecodeString(sigValueB64)
	require.NoError(t, err)

	pub := cred.SigningCert.PublicKey.(*rsa.PublicKey)
	err = rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], sigBytes)
	require.NoError(t, err)
}

func TestSignFacturaXML_SigningCertificateBlockCarriesCertDigest(t *testing.T) {
	cred := selfSignedCredential(t)
	unsigned := sampleUnsignedXML(t)

	signed, err := SignFacturaXML(unsigned, cred)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	sigEl := root.FindElement("Signature")

	certDigestEl := sigEl.FindElement("Object/QualifyingProperties/SignedProperties/SignedSignatureProperties/SigningCertificate/Cert/CertDigest/DigestValue")
	require.NotNil(t, certDigestEl)

	sum := sha256.Sum256(cred.SigningCert.Raw)
	expected := base64.StdEncoding.EncodeToString(sum[:])
	require.Equal(t, expected, certDigestEl.Text())

	serialEl := sigEl.FindElement("Object/QualifyingProperties/SignedProperties/SignedSignatureProperties/SigningCertificate/Cert/IssuerSerial/X509SerialNumber")
	require.NotNil(t, serialEl)
	require.Equal(t, cred.SigningCert.SerialNumber.String(), serialEl.Text())
}
