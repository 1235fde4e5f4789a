package models

import (
	"encoding/json"
	"time"
)

// MaxTweetLength bounds Tweet.Body and Profile.Bio.
const MaxTweetLength = 280

// Tweet is a short post owned by its author.
type Tweet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Body      string    `gorm:"size:280;not null" json:"body"`
	Image     string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Computed at query time.
	ImageURL  string `gorm:"-" json:"image_url,omitempty"`
	LikeCount int64  `gorm:"-" json:"like_count"`
}

// MarshalJSON renders the author through PublicUser.
func (t Tweet) MarshalJSON() ([]byte, error) {
	type plain Tweet
	return json.Marshal(struct {
		plain
		User *PublicUser `json:"user,omitempty"`
	}{plain: plain(t), User: t.User.Public()})
}

// TweetLike records that LikedBy likes Tweet. A pair appears at most once.
type TweetLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TweetID   uint      `gorm:"not null;uniqueIndex:idx_tweet_likes_pair" json:"tweet_id"`
	LikedByID uint      `gorm:"not null;uniqueIndex:idx_tweet_likes_pair;index" json:"liked_by_id"`
	Tweet     *Tweet    `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE" json:"-"`
	LikedBy   *User     `gorm:"foreignKey:LikedByID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (TweetLike) TableName() string {
	return "tweet_likes"
}
