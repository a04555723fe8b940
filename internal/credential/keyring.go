// Package credential stores channel secrets in the system keyring.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "taskassistant"

// ErrNotFound is returned (wrapped) when no secret has the requested name.
var ErrNotFound = keyring.ErrKeyNotFound

// Names of the secrets the setup wizard stores.
const (
	WhatsAppToken  = "whatsapp_access_token"
	WhatsAppVerify = "whatsapp_verify_token"
	SMTPPassword   = "smtp_password"
	IMAPPassword   = "imap_password"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskassistant/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskassistant-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a secret by name.
func Get(name string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(name)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", name, err)
	}
	return string(item.Data), nil
}

// Set stores a secret under name, replacing any previous value.
func Set(name, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         name,
		Data:        []byte(value),
		Label:       serviceName + " " + name,
		Description: "task assistant channel secret",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", name, err)
	}
	return nil
}

// Delete removes a secret.
func Delete(name string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(name); err != nil {
		return fmt.Errorf("deleting credential %q: %w", name, err)
	}
	return nil
}
