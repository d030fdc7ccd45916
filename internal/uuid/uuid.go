// Package uuid provides UUID v4 generation and validation utilities.
//
// Identifiers generated here are used as primary keys both in the local
// SQLite store and in the remote relational tables, so they must keep the
// UUID v4 textual shape whenever a secure random source is available.
package uuid

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
// where y is one of [8, 9, a, b] (variant bits)
var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New generates a new UUID v4 backed by crypto/rand. If the secure random
// source fails it degrades to a timestamp+random-suffix string; that shape is
// not a valid UUID and will be rejected by a strict UUID column, so the
// fallback exists only to keep local writes possible on a broken platform.
func New() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

// fallbackID mirrors the legacy non-secure generator: millisecond timestamp
// plus a base-36 random suffix.
func fallbackID() string {
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + suffix
}

// NewFromString creates a UUID from a string.
// Returns an error if the string is not a valid UUID v4.
func NewFromString(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}
	if id.Version() != 4 {
		return uuid.Nil, fmt.Errorf("expected UUID v4, got v%d", id.Version())
	}
	return id, nil
}

// IsValid checks if a string is a valid UUID v4.
// Enforces strict format with dashes and correct variant bits.
func IsValid(s string) bool {
	return uuidV4Regex.MatchString(s)
}

// Validate returns an error if the string is not a valid UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}
