package utils

import (
	"errors"
	"os"
	"strings"
)

// CheckInternalToken authorizes the internal/ops endpoints (outbox replay,
// clear-data). Prefer INTERNAL_API_TOKEN_HASH (bcrypt hash of the token);
// INTERNAL_API_TOKEN is a plain-value fallback for local/dev.
func CheckInternalToken(provided string) error {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return errors.New("missing internal token")
	}

	if hashed := strings.TrimSpace(os.Getenv("INTERNAL_API_TOKEN_HASH")); hashed != "" {
		if err := ComparePassword(hashed, provided); err != nil {
			return errors.New("invalid internal token")
		}
		return nil
	}

	plain := strings.TrimSpace(os.Getenv("INTERNAL_API_TOKEN"))
	if plain == "" {
		return errors.New("internal token not configured")
	}
	if provided != plain {
		return errors.New("invalid internal token")
	}
	return nil
}
