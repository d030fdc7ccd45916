package models

import "fmt"

// Gender values accepted for a child profile.
const (
	GenderBoy  = "boy"
	GenderGirl = "girl"
)

// ChildProfile represents a child whose memories and growth records are kept.
//
// The bootstrap profile created on first run has an empty name. It exists so
// the UI always has an active profile to bind to; it is never pushed to the
// remote store and is not protected from being overwritten by a real remote
// profile during pull.
type ChildProfile struct {
	ID            UUID   `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	DOB           string `db:"dob" json:"dob"`
	BirthTime     string `db:"birth_time" json:"birthTime,omitempty"`
	HospitalName  string `db:"hospital_name" json:"hospitalName,omitempty"`
	BirthLocation string `db:"birth_location" json:"birthLocation,omitempty"`
	Gender        string `db:"gender" json:"gender"`
	ProfileImage  string `db:"profile_image" json:"profileImage,omitempty"`
	Synced        int    `db:"synced" json:"synced"`
}

// TableName returns the remote table name for ChildProfile.
func (ChildProfile) TableName() string {
	return "child_profile"
}

// IsBootstrap reports whether this is the auto-created empty-name profile.
func (p *ChildProfile) IsBootstrap() bool {
	return trimmed(p.Name) == ""
}

// Validate checks the profile before persisting.
func (p *ChildProfile) Validate() error {
	if p.Gender != GenderBoy && p.Gender != GenderGirl {
		return fmt.Errorf("invalid gender %q", p.Gender)
	}
	if err := ValidateImageData(p.ProfileImage); err != nil {
		return fmt.Errorf("invalid profile image: %w", err)
	}
	return nil
}
