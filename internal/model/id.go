package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type IDType string

const IDTypeSession IDType = "ses"

var validIDTypes = map[IDType]bool{
	IDTypeSession: true,
}

// GenerateID returns "<type>_<uuid v7>". Version 7 UUIDs start with their
// creation time in milliseconds, so IDs sort in creation order.
func GenerateID(idType IDType) (string, error) {
	if !validIDTypes[idType] {
		return "", fmt.Errorf("invalid ID type: %s", idType)
	}
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return string(idType) + "_" + u.String(), nil
}

func parseID(id string) (uuid.UUID, error) {
	prefix, rest, ok := strings.Cut(id, "_")
	if !ok || !validIDTypes[IDType(prefix)] {
		return uuid.UUID{}, fmt.Errorf("invalid ID format: %s", id)
	}
	// uuid.Parse also accepts braces and urn: forms
	if len(rest) != 36 || rest != strings.ToLower(rest) {
		return uuid.UUID{}, fmt.Errorf("invalid ID format: %s", id)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid ID format: %s: %w", id, err)
	}
	if u.Version() != 7 {
		return uuid.UUID{}, fmt.Errorf("invalid ID format: %s: uuid version %d", id, u.Version())
	}
	return u, nil
}

func ValidateID(id string) bool {
	_, err := parseID(id)
	return err == nil
}

// ParseIDTimestamp returns the creation time embedded in id.
func ParseIDTimestamp(id string) (time.Time, error) {
	u, err := parseID(id)
	if err != nil {
		return time.Time{}, err
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), nil
}
