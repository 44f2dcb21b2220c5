package application

import (
	"fmt"

	"thirdcoast.systems/browserutility/internal/config"
	"thirdcoast.systems/browserutility/pkg/encryption"
)

// InitEncryptionManager builds the manager that seals the stored API key.
// It returns nil, nil when no ENCRYPTION_KEY is configured; values are then
// stored in plain text.
func InitEncryptionManager(conf config.Config) (*encryption.Manager, error) {
	if conf.EncryptionKey == "" {
		return nil, nil
	}

	manager, err := encryption.NewManagerFromHex(conf.EncryptionKey, conf.EncryptionCipher)
	if err != nil {
		return nil, fmt.Errorf("create encryption manager: %w", err)
	}
	return manager, nil
}
