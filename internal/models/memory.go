package models

import (
	"fmt"
	"strings"
	"time"
)

// Memory represents a single captured moment belonging to a child profile.
type Memory struct {
	ID          UUID    `db:"id" json:"id"`
	ChildID     UUID    `db:"child_id" json:"childId"`
	Title       string  `db:"title" json:"title"`
	Date        string  `db:"date" json:"date"` // ISO YYYY-MM-DD
	Description string  `db:"description" json:"description"`
	ImageURL    string  `db:"image_url" json:"imageUrl"`
	Tags        TagList `db:"tags" json:"tags"`
	Synced      int     `db:"synced" json:"synced"`
}

// TableName returns the remote table name for Memory.
func (Memory) TableName() string {
	return "memories"
}

// Validate checks the memory before persisting.
func (m *Memory) Validate() error {
	if m.ChildID == "" {
		return fmt.Errorf("memory requires a childId")
	}
	if trimmed(m.Title) == "" {
		return fmt.Errorf("memory requires a title")
	}
	if m.Date != "" {
		if _, err := time.Parse("2006-01-02", m.Date); err != nil {
			return fmt.Errorf("invalid date %q: %w", m.Date, err)
		}
	}
	if err := ValidateImageData(m.ImageURL); err != nil {
		return fmt.Errorf("invalid memory image: %w", err)
	}
	return nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
