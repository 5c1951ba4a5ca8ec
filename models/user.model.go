package models

import "gorm.io/gorm"

// User represents a registered account (student or teacher)
type User struct {
	gorm.Model
	Name      string `json:"name"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	Mobile    string `json:"mobile"`
	Password  string `json:"-"`
	Role      string `json:"role" gorm:"default:'USER'"` // USER, TEACHER
	IsDeleted bool   `gorm:"default:false"`
}
