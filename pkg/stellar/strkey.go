package stellar

import (
	"encoding/base32"
	"fmt"
)

// Stellar account IDs are "strkey" encoded: a version byte, the 32-byte
// ed25519 public key, and a CRC16-XModem checksum, base32 encoded without
// padding. Account IDs carry version byte 6<<3 and always start with 'G'.
const accountIDVersionByte = 6 << 3

var strkeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// DecodeAccountID returns the raw ed25519 public key for a G... address.
func DecodeAccountID(address string) ([]byte, error) {
	if len(address) != 56 {
		return nil, fmt.Errorf("account id must be 56 characters, got %d", len(address))
	}
	raw, err := strkeyEncoding.DecodeString(address)
	if err != nil {
		return nil, fmt.Errorf("decoding account id: %w", err)
	}
	if len(raw) != 35 {
		return nil, fmt.Errorf("account id payload must be 35 bytes, got %d", len(raw))
	}
	if raw[0] != accountIDVersionByte {
		return nil, fmt.Errorf("unexpected version byte 0x%02x", raw[0])
	}
	payload := raw[:33]
	checksum := uint16(raw[33]) | uint16(raw[34])<<8
	if crc16XModem(payload) != checksum {
		return nil, fmt.Errorf("account id checksum mismatch")
	}
	key := make([]byte, 32)
	copy(key, raw[1:33])
	return key, nil
}

// EncodeAccountID strkey-encodes a raw 32-byte ed25519 public key.
func EncodeAccountID(publicKey []byte) (string, error) {
	if len(publicKey) != 32 {
		return "", fmt.Errorf("public key must be 32 bytes, got %d", len(publicKey))
	}
	payload := make([]byte, 0, 35)
	payload = append(payload, accountIDVersionByte)
	payload = append(payload, publicKey...)
	checksum := crc16XModem(payload)
	payload = append(payload, byte(checksum), byte(checksum>>8))
	return strkeyEncoding.EncodeToString(payload), nil
}

// IsValidAccountID reports whether address is a well-formed account strkey.
func IsValidAccountID(address string) bool {
	_, err := DecodeAccountID(address)
	return err == nil
}

func crc16XModem(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
