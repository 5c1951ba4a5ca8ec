package models

import "gorm.io/gorm"

// Course represents a purchasable course offering
type Course struct {
	gorm.Model
	CourseID    string  `json:"courseId" gorm:"uniqueIndex;not null"` // opaque, assigned at creation, never reused
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price" gorm:"not null"`
	TeacherID   uint    `json:"teacher_id" gorm:"index;not null"`
	TeacherName string  `json:"teacher_name"`
	Image       string  `json:"image"` // opaque storage key for the thumbnail
	Video       string  `json:"video"` // opaque storage key for the intro video
	IsPublished bool    `json:"is_published" gorm:"default:true"`
	IsDeleted   bool    `gorm:"default:false"`

	Enrollments []Enrollment `json:"enrollments" gorm:"foreignKey:CourseID;references:ID"`
}
