// Package models provides data model definitions for the Little Moments core.
package models

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Sync flag values. A record with SyncPending has local modifications that
// have not been confirmed as persisted remotely; the pull phase must not
// overwrite it. A record with SyncDone is known to match the remote copy.
const (
	SyncPending = 0
	SyncDone    = 1
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	if value == nil {
		*u = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// TagList is an ordered set of tag strings, persisted as a JSON array column.
type TagList []string

// Value implements driver.Valuer for TagList.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		t = TagList{}
	}
	data, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for TagList.
func (t *TagList) Scan(value interface{}) error {
	if value == nil {
		*t = TagList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into TagList", value)
	}
	if len(data) == 0 {
		*t = TagList{}
		return nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*t = TagList(tags)
	return nil
}

// NormalizeTags trims whitespace, drops empty entries and removes duplicates
// while preserving the first-seen order.
func NormalizeTags(tags []string) TagList {
	seen := make(map[string]bool, len(tags))
	out := make(TagList, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// ValidateImageData checks an embedded image value. Non-data-URI values
// (placeholder URLs, empty strings) pass through untouched; data URIs must
// carry a base64 payload that sniffs as an image.
func ValidateImageData(value string) error {
	if !strings.HasPrefix(value, "data:") {
		return nil
	}
	comma := strings.IndexByte(value, ',')
	if comma < 0 {
		return fmt.Errorf("malformed data URI")
	}
	payload, err := base64.StdEncoding.DecodeString(value[comma+1:])
	if err != nil {
		return fmt.Errorf("data URI payload is not valid base64: %w", err)
	}
	mtype := mimetype.Detect(payload)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return fmt.Errorf("data URI payload is %s, expected an image", mtype)
	}
	return nil
}
