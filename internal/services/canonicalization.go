// SPDX-License-Identifier: Apache-2.0
// This file is adapted from the github.com/russellhaering/goxmldsig project.
package services

import (
	"crypto"
	"fmt"
	"sort"

	"backend/internal/services/etreeutils"

	"github.com/beevik/etree"
)

// AlgorithmID identifies a signature or canonicalization algorithm by its
// standard URI.
type AlgorithmID string

const (
	// RSASHA256SignatureMethod is the XML-DSig identifier for RSA-SHA256,
	// the only signature method the access-key/invoice signer emits.
	RSASHA256SignatureMethod = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

	// CanonicalXML10RecAlgorithmId is the inclusive (non-exclusive) XML
	// canonicalization algorithm required for XAdES-BES SignedInfo/
	// SignedProperties digests.
	CanonicalXML10RecAlgorithmId AlgorithmID = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
)

var digestAlgorithmIdentifiers = map[crypto.Hash]string{
	crypto.SHA1:   "http://www.w3.org/2000/09/xmldsig#sha1",
	crypto.SHA256: "http://www.w3.org/2001/04/xmlenc#sha256",
	crypto.SHA512: "http://www.w3.org/2001/04/xmlenc#sha512",
}

// Canonicalizer defines a method for canonicalizing an XML element so it can
// be digested or signed in a reproducible way.
type Canonicalizer interface {
	Canonicalize(el *etree.Element) ([]byte, error)
	Algorithm() AlgorithmID
}

// c14N10RecCanonicalizer implements the inclusive "xml-c14n-20010315"
// canonicalization algorithm. Unlike exclusive canonicalization it carries
// every namespace and xml:* attribute inherited from ancestor elements onto
// the canonicalized subtree, which is what lets a detached SignedProperties
// element be digested independently of the document it will be embedded in.
type c14N10RecCanonicalizer struct{}

// MakeC14N10RecCanonicalizer builds the inclusive canonicalizer used for
// both the enveloped document Reference and the SignedProperties Reference
// of a XAdES-BES signature.
func MakeC14N10RecCanonicalizer() Canonicalizer {
	return c14N10RecCanonicalizer{}
}

func (c c14N10RecCanonicalizer) Algorithm() AlgorithmID {
	return CanonicalXML10RecAlgorithmId
}

func (c c14N10RecCanonicalizer) Canonicalize(el *etree.Element) ([]byte, error) {
	scope := map[string]struct{}{}
	el, err := canonicalPrep(el, scope, true)
	if err != nil {
		return nil, err
	}
	return canonicalSerialize(el)
}

// canonicalPrep detaches el from its document, pulls in the namespace and
// xml:* attributes it inherits from its ancestors, then recursively prepares
// its descendants.
func canonicalPrep(el *etree.Element, seenSoFar map[string]struct{}, isRoot bool) (*etree.Element, error) {
	ne := el.Copy()

	if isRoot {
		nsAttrs, xmlAttrs := getParentNamespaceAndXmlAttributes(el)
		enhanceNamespaceAttributes(ne, nsAttrs, xmlAttrs)
	}

	return canonicalPrepInner(ne, seenSoFar)
}

func canonicalPrepInner(el *etree.Element, seenSoFar map[string]struct{}) (*etree.Element, error) {
	// Track namespace declarations seen on this element so identical
	// declarations on descendants are dropped as redundant.
	local := make(map[string]struct{}, len(seenSoFar))
	for k := range seenSoFar {
		local[k] = struct{}{}
	}

	var filteredAttrs []etree.Attr
	for _, attr := range el.Attr {
		if attr.Space == xmlnsSpace || (attr.Space == "" && attr.Key == xmlnsSpace) {
			sig := attr.Space + ":" + attr.Key + "=" + attr.Value
			if _, ok := local[sig]; ok {
				continue
			}
			local[sig] = struct{}{}
		}
		filteredAttrs = append(filteredAttrs, attr)
	}
	el.Attr = filteredAttrs

	sort.Sort(etreeutils.SortedAttrs(el.Attr))

	var newChild []etree.Token
	for _, token := range el.Child {
		switch t := token.(type) {
		case *etree.Comment:
			// XML comments never contribute to the canonical form.
			continue
		case *etree.Element:
			child, err := canonicalPrepInner(t, local)
			if err != nil {
				return nil, err
			}
			newChild = append(newChild, child)
		default:
			newChild = append(newChild, token)
		}
	}
	el.Child = newChild

	return el, nil
}

const xmlnsSpace = "xmlns"

// canonicalSerialize renders el using etree's canonical write settings,
// which normalize attribute-value escaping, whitespace and end-tag form per
// the c14n spec.
func canonicalSerialize(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el)
	doc.WriteSettings = etree.WriteSettings{
		CanonicalEndTags: true,
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	return doc.WriteToBytes()
}

// getParentNamespaceAndXmlAttributes walks el's ancestor chain, outermost
// first, collecting the xmlns/xmlns:* and xml:* attributes el would inherit
// were it still attached to the document. Needed because SignedProperties is
// digested as a detached element but must canonicalize as though it still
// carried its document's namespace context.
func getParentNamespaceAndXmlAttributes(el *etree.Element) (map[string]string, map[string]string) {
	nsAttrs := map[string]string{}
	xmlAttrs := map[string]string{}

	var chain []*etree.Element
	for p := el.Parent(); p != nil; p = p.Parent() {
		chain = append(chain, p)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		for _, attr := range chain[i].Attr {
			switch {
			case attr.Space == "" && attr.Key == xmlnsSpace:
				nsAttrs[""] = attr.Value
			case attr.Space == xmlnsSpace:
				nsAttrs[attr.Key] = attr.Value
			case attr.Space == "xml":
				xmlAttrs[attr.Key] = attr.Value
			}
		}
	}

	return nsAttrs, xmlAttrs
}

// enhanceNamespaceAttributes re-attaches inherited namespace/xml:* attributes
// onto a detached element copy, skipping anything the element already
// declares itself.
func enhanceNamespaceAttributes(el *etree.Element, nsAttrs map[string]string, xmlAttrs map[string]string) {
	has := func(space, key string) bool {
		for _, a := range el.Attr {
			if a.Space == space && a.Key == key {
				return true
			}
		}
		return false
	}

	for prefix, value := range nsAttrs {
		if prefix == "" {
			if !has("", xmlnsSpace) {
				el.CreateAttr(xmlnsSpace, value)
			}
			continue
		}
		if !has(xmlnsSpace, prefix) {
			el.CreateAttr(fmt.Sprintf("%s:%s", xmlnsSpace, prefix), value)
		}
	}

	for key, value := range xmlAttrs {
		if !has("xml", key) {
			el.CreateAttr(fmt.Sprintf("xml:%s", key), value)
		}
	}
}
