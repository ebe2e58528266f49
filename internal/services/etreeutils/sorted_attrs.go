// SPDX-License-Identifier: Apache-2.0
// This file is adapted from the github.com/russellhaering/goxmldsig project.
package etreeutils

import "github.com/beevik/etree"

const xmlnsPrefix = "xmlns"

// SortedAttrs attaches the methods of sort.Interface to []etree.Attr, sorting
// attributes into XML canonicalization order: the default xmlns declaration
// first, then xmlns:prefix declarations ordered by prefix, then the
// remaining attributes ordered by resolved namespace URI and local name.
type SortedAttrs []etree.Attr

func (a SortedAttrs) Len() int      { return len(a) }
func (a SortedAttrs) Swap(i, j int) { a[i], a[j] = a[j], a[i] }

func (a SortedAttrs) Less(i, j int) bool {
	an, bn := a[i], a[j]

	if isDefaultNamespaceDecl(an) {
		return !isDefaultNamespaceDecl(bn)
	}
	if isDefaultNamespaceDecl(bn) {
		return false
	}

	aIsNS := an.Space == xmlnsPrefix
	bIsNS := bn.Space == xmlnsPrefix
	if aIsNS != bIsNS {
		return aIsNS
	}
	if aIsNS && bIsNS {
		return an.Key < bn.Key
	}

	aURI := a.namespaceURI(an.Space)
	bURI := a.namespaceURI(bn.Space)
	if aURI != bURI {
		return aURI < bURI
	}
	return an.Key < bn.Key
}

func isDefaultNamespaceDecl(attr etree.Attr) bool {
	return attr.Space == "" && attr.Key == xmlnsPrefix
}

// namespaceURI resolves a namespace prefix to its declared URI by scanning
// the sibling attribute set for a matching xmlns:prefix declaration. Falls
// back to the prefix itself if no declaration is present among the siblings.
func (a SortedAttrs) namespaceURI(prefix string) string {
	if prefix == "" {
		return ""
	}
	for _, attr := range a {
		if attr.Space == xmlnsPrefix && attr.Key == prefix {
			return attr.Value
		}
	}
	return prefix
}
