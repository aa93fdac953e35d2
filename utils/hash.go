package utils

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

const namespacePrefix = "ns_"

// ContentHash is the md5 of text laid out as a UUID string. Identical
// texts always map to the same vector record id.
func ContentHash(text string) string {
	return uuid.UUID(md5.Sum([]byte(text))).String()
}

// NamespaceKey derives the vector namespace of a document from its
// storage locator.
func NamespaceKey(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return namespacePrefix + hex.EncodeToString(sum[:])[:32]
}
