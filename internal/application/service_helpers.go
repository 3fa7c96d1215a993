package application

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

func (s *Service) logger() *slog.Logger {
	return slog.Default().With("module", "application", "layer", "service")
}

// hashToken maps opaque token strings to their stored form. Raw refresh and
// session tokens never reach the repositories.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
