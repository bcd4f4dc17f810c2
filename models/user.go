package models

// User is an admin account allowed into the catalog UI.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:80;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:128;not null"`
}

func (u *User) TableName() string {
	return "users"
}
