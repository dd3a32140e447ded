package stellar

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const signatureLength = 64

// DecodeSignature accepts an ed25519 signature encoded as hex or standard
// base64 and returns the raw 64 bytes.
func DecodeSignature(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("signature is required")
	}
	if raw, err := hex.DecodeString(encoded); err == nil {
		if len(raw) != signatureLength {
			return nil, fmt.Errorf("signature must be %d bytes, got %d", signatureLength, len(raw))
		}
		return raw, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("signature is neither hex nor base64")
	}
	if len(raw) != signatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", signatureLength, len(raw))
	}
	return raw, nil
}

// VerifySignature checks that signature over message was produced by the
// account behind the given G... address.
func VerifySignature(address string, message []byte, signature string) error {
	publicKey, err := DecodeAccountID(address)
	if err != nil {
		return fmt.Errorf("decoding signer address: %w", err)
	}
	raw, err := DecodeSignature(signature)
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, raw) {
		return fmt.Errorf("signature does not match signer")
	}
	return nil
}
