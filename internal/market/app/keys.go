package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pandamarket/market/pkg/cryptox"
)

// loadOrGenerateKey reads an Ed25519 private key in PEM form from path, or
// generates an ephemeral one when no path is configured. Ephemeral keys mean
// every restart invalidates all outstanding tokens, which is fine for dev
// and for tests but should not be used in prod.
func loadOrGenerateKey(path, class string, logger *slog.Logger) ([]byte, error) {
	if path == "" {
		logger.Warn("no key file configured, generating ephemeral key", "class", class)
		return cryptox.GenerateEd25519Key()
	}

	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s key file %s: %w", class, path, err)
	}
	return pemBytes, nil
}
