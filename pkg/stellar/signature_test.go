package stellar

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func signerFixture(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	address, err := EncodeAccountID(publicKey)
	require.NoError(t, err)
	return address, privateKey
}

func TestVerifySignatureHex(t *testing.T) {
	address, privateKey := signerFixture(t)
	message := []byte(`{"escrow_id":"abc","event_type":"delivery"}`)
	sig := ed25519.Sign(privateKey, message)

	require.NoError(t, VerifySignature(address, message, hex.EncodeToString(sig)))
}

func TestVerifySignatureBase64(t *testing.T) {
	address, privateKey := signerFixture(t)
	message := []byte("confirmation payload")
	sig := ed25519.Sign(privateKey, message)

	require.NoError(t, VerifySignature(address, message, base64.StdEncoding.EncodeToString(sig)))
}

func TestVerifySignatureRejectsForgery(t *testing.T) {
	address, _ := signerFixture(t)
	_, otherKey := signerFixture(t)
	message := []byte("confirmation payload")
	sig := ed25519.Sign(otherKey, message)

	require.Error(t, VerifySignature(address, message, hex.EncodeToString(sig)))
}

func TestVerifySignatureRejectsTamperedMessage(t *testing.T) {
	address, privateKey := signerFixture(t)
	sig := ed25519.Sign(privateKey, []byte("original"))

	require.Error(t, VerifySignature(address, []byte("modified"), hex.EncodeToString(sig)))
}

func TestDecodeSignatureRejectsWrongLength(t *testing.T) {
	_, err := DecodeSignature(hex.EncodeToString(make([]byte, 32)))
	require.Error(t, err)

	_, err = DecodeSignature(base64.StdEncoding.EncodeToString(make([]byte, 16)))
	require.Error(t, err)

	_, err = DecodeSignature("")
	require.Error(t, err)
}
