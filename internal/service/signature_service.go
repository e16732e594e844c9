package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix tags the hex digest in X-Signature style headers.
const SignaturePrefix = "sha256="

// HMACSignatureService implements ports.SignatureService. Inbound partner
// webhooks are verified and outbound deliveries are signed with it.
type HMACSignatureService struct{}

// NewHMACSignatureService creates the signer.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign returns the header value for payload under secret.
func (s *HMACSignatureService) Sign(secret string, payload string) string {
	return SignaturePrefix + hex.EncodeToString(payloadMAC(secret, payload))
}

// Verify reports whether header carries the digest of payload under secret.
// Hex case is ignored; the prefix is not optional.
func (s *HMACSignatureService) Verify(secret string, payload string, header string) bool {
	got, ok := parseSignatureHeader(header)
	if !ok {
		return false
	}
	return hmac.Equal(got, payloadMAC(secret, payload))
}

func payloadMAC(secret, payload string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// parseSignatureHeader decodes "sha256=<64 hex>" into the raw digest.
func parseSignatureHeader(header string) ([]byte, bool) {
	digest, found := strings.CutPrefix(strings.TrimSpace(header), SignaturePrefix)
	if !found || len(digest) != hex.EncodedLen(sha256.Size) {
		return nil, false
	}
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return nil, false
	}
	return raw, true
}
