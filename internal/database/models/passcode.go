package models

import (
	"time"

	"github.com/google/uuid"
)

// Passcode holds a one-way hash of a login code. The plaintext is shown once
// at creation and never stored; only the last four characters survive as a
// display hint.
type Passcode struct {
	Base
	UserID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	CodeHash   string     `gorm:"not null" json:"-"`
	CodeHint   string     `gorm:"size:4;not null" json:"code_hint"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Passcode) TableName() string {
	return "passcodes"
}
