package submission

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainPayload separates payload digests from any other hash we compute.
// The version suffix allows a future algorithm change.
const DomainPayload = "kickoff/payload/v1"

// Digest returns the hex SHA-256 of raw with domain separation.
// Format: SHA256(domain + 0x00 + raw).
func Digest(raw []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainPayload))
	h.Write([]byte{0x00})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
