package models

// Tag labels posts; many-to-many through post_tags.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:100;not null" json:"name"`
	Slug  string `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Posts []Post `gorm:"many2many:post_tags;" json:"-"`
}
