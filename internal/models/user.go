// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// DefaultAvatarURL is shown for profiles without an uploaded image.
const DefaultAvatarURL = "https://i.pinimg.com/550x/7a/95/ef/7a95ef5acbc87c558b3b4d7d0ddb3469.jpg"

// User is an account. Password holds a bcrypt hash, never plaintext.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:254;not null" json:"email"`
	Phone       string     `gorm:"size:32" json:"phone,omitempty"`
	DateOfBirth time.Time  `gorm:"type:date;not null" json:"date_of_birth"`
	Password    string     `gorm:"size:128;not null" json:"-"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// PublicUser is what other signed-in users see of an account.
type PublicUser struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Profile  *Profile `json:"profile,omitempty"`
}

// Public strips contact details and account state from u.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{ID: u.ID, Username: u.Username, Profile: u.Profile}
}

// PublicUsers maps Public over users.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, len(users))
	for i := range users {
		out[i] = *users[i].Public()
	}
	return out
}

// Profile is the 1-1 public face of a User, keyed by the user's id.
type Profile struct {
	UserID uint   `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Avatar string `gorm:"size:255" json:"avatar,omitempty"`
	Bio    string `gorm:"size:280" json:"bio"`

	// AvatarURL is resolved by the storage layer; not persisted.
	AvatarURL string `gorm:"-" json:"avatar_url"`
}

// ResolveAvatar fills AvatarURL, falling back to the placeholder image.
func (p *Profile) ResolveAvatar(publicURL func(key string) string) {
	if p.Avatar == "" {
		p.AvatarURL = DefaultAvatarURL
		return
	}
	p.AvatarURL = publicURL(p.Avatar)
}
