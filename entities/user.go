package entities

import (
	"time"
)

type Timestamp struct {
	CreatedAt time.Time `gorm:"type:timestamp" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp" json:"updated_at"`
}

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"size:254;uniqueIndex" json:"email"`
	Username  string `gorm:"size:150;uniqueIndex" json:"username"`
	FirstName string `gorm:"size:150" json:"first_name"`
	LastName  string `gorm:"size:150" json:"last_name"`
	Password  string `gorm:"size:255" json:"-"`
	AvatarURL string `json:"avatar,omitempty"`

	Recipes []*Recipe `gorm:"foreignKey:AuthorID" json:"-"`
	Timestamp
}

// FullName is the display name used in projections and the shopping list export.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Subscription struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	UserID   uint `gorm:"not null;index;uniqueIndex:idx_user_author" json:"user_id"`
	AuthorID uint `gorm:"not null;index;uniqueIndex:idx_user_author" json:"author_id"`

	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp
}
