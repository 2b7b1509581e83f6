package models

type User struct {
	Base
	Email   string `gorm:"uniqueIndex;not null" json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `gorm:"default:false" json:"is_admin"`

	// Relationships
	Passcodes []Passcode `gorm:"foreignKey:UserID" json:"-"`
	Sessions  []Session  `gorm:"foreignKey:UserID" json:"-"`
	Projects  []Project  `gorm:"foreignKey:OwnerID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
