package model

import "time"

type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"size:50;not null;uniqueIndex" json:"username"`
	HashedPassword string     `gorm:"size:255;not null" json:"-"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	LastLogin      *time.Time `json:"last_login"`
}
