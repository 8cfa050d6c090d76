package testutil

import (
	"staffsync/internal/encryption"
	"staffsync/internal/staff"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() staff.Encryptor {
	return encryption.NewTestEncryptor()
}
