package model

import (
	"time"
)

// User holds the public profile fields used for message hydration. Rows are
// owned by the identity service; this engine only reads them.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserName  string `gorm:"column:username;uniqueIndex;not null;type:varchar(255)" json:"username"`
	Nickname  string `gorm:"type:varchar(255)" json:"nickname"`
	AvatarURL string `json:"avatar_url"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Profile is the projection of a user embedded in hydrated messages.
type Profile struct {
	ID        uint   `json:"id"`
	UserName  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// Profile returns the public projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		UserName:  u.UserName,
		Nickname:  u.Nickname,
		AvatarURL: u.AvatarURL,
	}
}
