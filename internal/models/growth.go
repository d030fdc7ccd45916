package models

import "fmt"

// GrowthData represents one height/weight measurement for a child at a given
// age in months. The remote table enforces uniqueness per (childId, month);
// the month alone is not a key.
type GrowthData struct {
	ID      UUID    `db:"id" json:"id"`
	ChildID UUID    `db:"child_id" json:"childId"`
	Month   int     `db:"month" json:"month"`
	Height  float64 `db:"height" json:"height"` // cm
	Weight  float64 `db:"weight" json:"weight"` // kg
	Synced  int     `db:"synced" json:"synced"`
}

// TableName returns the remote table name for GrowthData.
func (GrowthData) TableName() string {
	return "growth_data"
}

// Validate checks the growth record before persisting.
func (g *GrowthData) Validate() error {
	if g.ChildID == "" {
		return fmt.Errorf("growth record requires a childId")
	}
	if g.Month < 0 {
		return fmt.Errorf("invalid month %d", g.Month)
	}
	if g.Height < 0 || g.Weight < 0 {
		return fmt.Errorf("height and weight must be non-negative")
	}
	return nil
}
