package models

import (
	"fmt"
	"unicode/utf8"
)

// Profile limits
const (
	MaxDisplayNameLength = 64
	MaxBioLength         = 280
)

// Profile is the public card of a user
type Profile struct {
	ID          string `gorm:"type:varchar(64);primaryKey;column:id"`
	DisplayName string `gorm:"type:varchar(64);column:display_name"`
	Bio         string `gorm:"type:varchar(1200);column:bio"`
	AvatarURL   string `gorm:"type:varchar(1024);column:avatar_url"`
	CreatedAt   int64  `gorm:"not null;autoCreateTime:milli;column:created_at"`
	UpdatedAt   int64  `gorm:"not null;autoUpdateTime:milli;column:updated_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Validate checks length caps on the editable fields
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: profile id is required", ErrInvalid)
	}
	if utf8.RuneCountInString(p.DisplayName) > MaxDisplayNameLength {
		return fmt.Errorf("%w: display name longer than %d characters", ErrInvalid, MaxDisplayNameLength)
	}
	if utf8.RuneCountInString(p.Bio) > MaxBioLength {
		return fmt.Errorf("%w: bio longer than %d characters", ErrInvalid, MaxBioLength)
	}
	return nil
}
