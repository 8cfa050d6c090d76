// Package encryption seals export bundles of the local cache and action log.
package encryption

import (
	"errors"
	"fmt"

	"staffsync/internal/config"
	"staffsync/internal/staff"
)

// MinPassphraseLength is the shortest passphrase Setup accepts.
const MinPassphraseLength = 8

var (
	// ErrNotConfigured is returned when the key files have not been generated.
	ErrNotConfigured = errors.New("encryption keys not configured (run 'staffsync encryption init')")
	// ErrWrongPassphrase is returned by Unlock when the passphrase does not open the private key.
	ErrWrongPassphrase = errors.New("incorrect passphrase")
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (staff.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
