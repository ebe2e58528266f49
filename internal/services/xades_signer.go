package services

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"backend/internal/errors"

	"github.com/beevik/etree"
)

const (
	dsigNS  = "http://www.w3.org/2000/09/xmldsig#"
	xadesNS = "http://uri.etsi.org/01903/v1.3.2#"

	envelopedSignatureTransform = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	signedPropertiesType        = "http://uri.etsi.org/01903#SignedProperties"

	signatureElementID      = "Signature"
	signedPropertiesID      = "SignedProperties-1"
	qualifyingPropertiesTag = "QualifyingProperties"
)

// SignFacturaXML produces an enveloped XAdES-BES signature over unsignedXML
// (the output of AssembleFacturaXML) using cred, and returns the document
// with a `<Signature Id="Signature">` block appended as the factura
// element's last child.
//
// Two references are digested independently: Reference A over the whole
// comprobante after stripping the enveloped signature, Reference B over the
// detached SignedProperties block built from the signing certificate.
func SignFacturaXML(unsignedXML []byte, cred *Credential) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(unsignedXML); err != nil {
		return nil, errors.ErrInternal.WithMessage(fmt.Sprintf("failed to parse unsigned XML: %v", err))
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.ErrInternal.WithMessage("unsigned XML has no root element")
	}
	if root.SelectAttrValue("id", "") != FacturaComprobanteID {
		return nil, errors.ErrInternal.WithMessage("unsigned XML root is missing id=\"comprobante\"")
	}

	c14n := MakeC14N10RecCanonicalizer()

	comprobanteDigest, err := digestElement(root, c14n)
	if err != nil {
		return nil, err
	}

	signingTime := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	signedProps := buildSignedProperties(cred.SigningCert, signingTime)
	signedPropsDigest, err := digestElement(signedProps, c14n)
	if err != nil {
		return nil, err
	}

	signedInfo := buildSignedInfo(comprobanteDigest, signedPropsDigest)

	signedInfoDigestBytes, err := canonicalizeForSigning(signedInfo, c14n)
	if err != nil {
		return nil, err
	}
	hashed := sha256.Sum256(signedInfoDigestBytes)

	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, cred.PrivateKey, crypto.SHA256, hashed[:])
	if err != nil {
		return nil, errors.ErrInternal.WithMessage(fmt.Sprintf("failed to sign SignedInfo: %v", err))
	}

	signatureEl := buildSignatureElement(signedInfo, signatureValue, cred, signedProps)
	root.AddChild(signatureEl)

	var out []byte
	out, err = doc.WriteToBytes()
	if err != nil {
		return nil, errors.ErrInternal.WithMessage(fmt.Sprintf("failed to serialize signed XML: %v", err))
	}
	return out, nil
}

// digestElement canonicalizes el and returns the base64 SHA-256 digest used
// in a Reference's DigestValue.
func digestElement(el *etree.Element, c14n Canonicalizer) (string, error) {
	canon, err := c14n.Canonicalize(el)
	if err != nil {
		return "", errors.ErrInternal.WithMessage(fmt.Sprintf("failed to canonicalize element: %v", err))
	}
	sum := sha256.Sum256(canon)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// canonicalizeForSigning canonicalizes a freshly built element that has no
// document/parent context of its own (SignedInfo as assembled here inherits
// the dsig namespace declared directly on it, so no ancestor lookup is
// needed).
func canonicalizeForSigning(el *etree.Element, c14n Canonicalizer) ([]byte, error) {
	return c14n.Canonicalize(el)
}

func buildSignedInfo(comprobanteDigest, signedPropsDigest string) *etree.Element {
	signedInfo := etree.NewElement("SignedInfo")
	signedInfo.CreateAttr("xmlns", dsigNS)

	cm := signedInfo.CreateElement("CanonicalizationMethod")
	cm.CreateAttr("Algorithm", string(CanonicalXML10RecAlgorithmId))

	sm := signedInfo.CreateElement("SignatureMethod")
	sm.CreateAttr("Algorithm", RSASHA256SignatureMethod)

	refA := signedInfo.CreateElement("Reference")
	refA.CreateAttr("URI", "")
	transformsA := refA.CreateElement("Transforms")
	transformsA.CreateElement("Transform").CreateAttr("Algorithm", envelopedSignatureTransform)
	transformsA.CreateElement("Transform").CreateAttr("Algorithm", string(CanonicalXML10RecAlgorithmId))
	refA.CreateElement("DigestMethod").CreateAttr("Algorithm", digestAlgorithmIdentifiers[crypto.SHA256])
	refA.CreateElement("DigestValue").SetText(comprobanteDigest)

	refB := signedInfo.CreateElement("Reference")
	refB.CreateAttr("URI", "#"+signedPropertiesID)
	refB.CreateAttr("Type", signedPropertiesType)
	transformsB := refB.CreateElement("Transforms")
	transformsB.CreateElement("Transform").CreateAttr("Algorithm", string(CanonicalXML10RecAlgorithmId))
	refB.CreateElement("DigestMethod").CreateAttr("Algorithm", digestAlgorithmIdentifiers[crypto.SHA256])
	refB.CreateElement("DigestValue").SetText(signedPropsDigest)

	return signedInfo
}

// buildSignedProperties assembles the SignedProperties block digested as
// Reference B. It is built standalone (not yet attached under Object) so it
// can be canonicalized on its own before being embedded in the final
// Signature tree.
func buildSignedProperties(cert *x509.Certificate, signingTime string) *etree.Element {
	signedProps := etree.NewElement("SignedProperties")
	signedProps.CreateAttr("xmlns", xadesNS)
	signedProps.CreateAttr("Id", signedPropertiesID)

	sigProps := signedProps.CreateElement("SignedSignatureProperties")
	sigProps.CreateElement("SigningTime").SetText(signingTime)

	signingCertificate := sigProps.CreateElement("SigningCertificate")
	certEl := signingCertificate.CreateElement("Cert")

	certDigest := certEl.CreateElement("CertDigest")
	certDigestMethod := certDigest.CreateElement("DigestMethod")
	certDigestMethod.CreateAttr("Algorithm", digestAlgorithmIdentifiers[crypto.SHA256])
	sum := sha256.Sum256(cert.Raw)
	certDigest.CreateElement("DigestValue").SetText(base64.StdEncoding.EncodeToString(sum[:]))

	issuerSerial := certEl.CreateElement("IssuerSerial")
	issuerSerial.CreateElement("X509IssuerName").SetText(issuerNameNativeOrder(cert))
	issuerSerial.CreateElement("X509SerialNumber").SetText(decimalSerial(cert.SerialNumber))

	dataObjProps := signedProps.CreateElement("SignedDataObjectProperties")
	dataObjFormat := dataObjProps.CreateElement("DataObjectFormat")
	dataObjFormat.CreateAttr("ObjectReference", "#"+FacturaComprobanteID)
	dataObjFormat.CreateElement("MimeType").SetText("text/xml")

	return signedProps
}

// issuerNameNativeOrder renders the issuer RDN sequence in the order it
// appears on the certificate (RFC 2253's reversed rendering, which
// pkix.Name.String() produces, is what the authority's validator rejects).
func issuerNameNativeOrder(cert *x509.Certificate) string {
	rdnSeq, err := parseRDNSequence(cert.RawIssuer)
	if err != nil {
		// Fall back to the reversed form rather than fail signing outright;
		// a malformed RDN sequence here would already have failed to parse
		// as a certificate.
		return cert.Issuer.String()
	}
	return rdnSeq
}

// decimalSerial renders a certificate serial number, which x509 stores as a
// big.Int usually derived from a hex encoding, as a base-10 string.
func decimalSerial(serial *big.Int) string {
	return new(big.Int).Set(serial).String()
}

func buildSignatureElement(signedInfo *etree.Element, signatureValue []byte, cred *Credential, signedProps *etree.Element) *etree.Element {
	signature := etree.NewElement("Signature")
	signature.CreateAttr("xmlns", dsigNS)
	signature.CreateAttr("Id", signatureElementID)

	signature.AddChild(signedInfo)

	signature.CreateElement("SignatureValue").SetText(base64.StdEncoding.EncodeToString(signatureValue))

	keyInfo := signature.CreateElement("KeyInfo")
	x509Data := keyInfo.CreateElement("X509Data")
	for _, c := range cred.Chain {
		x509Data.CreateElement("X509Certificate").SetText(base64.StdEncoding.EncodeToString(c.Raw))
	}

	pub, ok := cred.SigningCert.PublicKey.(*rsa.PublicKey)
	if ok {
		keyValue := keyInfo.CreateElement("KeyValue")
		rsaKeyValue := keyValue.CreateElement("RSAKeyValue")
		rsaKeyValue.CreateElement("Modulus").SetText(base64.StdEncoding.EncodeToString(pub.N.Bytes()))
		rsaKeyValue.CreateElement("Exponent").SetText(base64.StdEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()))
	}

	object := signature.CreateElement("Object")
	qualifyingProperties := object.CreateElement(qualifyingPropertiesTag)
	qualifyingProperties.CreateAttr("xmlns", xadesNS)
	qualifyingProperties.CreateAttr("Target", "#"+signatureElementID)
	qualifyingProperties.AddChild(signedProps)

	return signature
}

// parseRDNSequence re-derives the issuer distinguished name in the order its
// attribute-type/value pairs appear in the DER-encoded RDNSequence, rather
// than the reversed, RFC 2253-influenced order pkix.Name.String() produces.
func parseRDNSequence(raw []byte) (string, error) {
	var rdnSeq pkix.RDNSequence
	if _, err := asn1.Unmarshal(raw, &rdnSeq); err != nil {
		return "", err
	}

	var parts []string
	for _, rdn := range rdnSeq {
		for _, atv := range rdn {
			value, ok := atv.Value.(string)
			if !ok {
				value = fmt.Sprintf("%v", atv.Value)
			}
			parts = append(parts, fmt.Sprintf("%s=%s", oidShortName(atv.Type), value))
		}
	}

	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out, nil
}

func oidShortName(oid asn1.ObjectIdentifier) string {
	switch oid.String() {
	case "2.5.4.3":
		return "CN"
	case "2.5.4.6":
		return "C"
	case "2.5.4.7":
		return "L"
	case "2.5.4.8":
		return "ST"
	case "2.5.4.10":
		return "O"
	case "2.5.4.11":
		return "OU"
	case "2.5.4.5":
		return "SERIALNUMBER"
	default:
		return oid.String()
	}
}
