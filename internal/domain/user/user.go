package user

import "time"

// User is a local account bound to exactly one GitHub identity.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GitHubID  string    `gorm:"column:github_id;uniqueIndex;not null" json:"-"`
	Username  string    `gorm:"column:username;uniqueIndex;not null" json:"username"`
	AvatarURL string    `gorm:"column:avatar_url;not null;default:''" json:"avatar_url"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
