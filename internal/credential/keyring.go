package credential

import (
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "updates-center"

// StoreTokenKey is the keyring key holding the entity API token.
const StoreTokenKey = "store-token"

// TokenEnv overrides the keyring lookup for the entity API token.
const TokenEnv = "UPDATES_CENTER_TOKEN"

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
		FileDir:                  "~/.config/updates-center/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("updates-center-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// StoreToken returns the entity API token, preferring the environment
// over the system keyring.
func StoreToken() (string, error) {
	if token := os.Getenv(TokenEnv); token != "" {
		return token, nil
	}
	return Get(StoreTokenKey)
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "updates-center " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}
