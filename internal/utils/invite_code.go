package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/wemake-app/wemake-api/internal/constants"
)

// GenerateInviteCode returns a six character uppercase code taken from a random UUID.
func GenerateInviteCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:constants.InviteCodeLength]), nil
}

// NormalizeInviteCode trims and uppercases user input. ok is false when the
// result is not a well-formed code.
func NormalizeInviteCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != constants.InviteCodeLength {
		return "", false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", false
		}
	}
	return code, true
}
