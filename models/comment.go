package models

import "time"

// Comment is a reader reply to a post. Inactive comments are hidden, never deleted.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	Name      string    `gorm:"size:80;not null" json:"name"`
	Email     string    `gorm:"size:254;not null" json:"email"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"index" json:"created"`
	UpdatedAt time.Time `json:"updated"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
}
