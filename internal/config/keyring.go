// ABOUTME: Stores the Home Assistant access token in the OS keyring.
// ABOUTME: Wraps zalando/go-keyring with package-level sentinel errors.
package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "streakhub"
	keyringUser    = "home-assistant-token"
)

var (
	// ErrNotFound is returned when no token is stored in the keyring.
	ErrNotFound = errors.New("token not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetToken reads the token from the keyring.
func GetToken() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

// SetToken stores the token in the keyring.
func SetToken(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// DeleteToken removes the token from the keyring.
func DeleteToken() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// KeyringAvailable makes a best-effort read to see whether the keyring works.
func KeyringAvailable() bool {
	_, err := keyring.Get(keyringService, "availability-check")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
