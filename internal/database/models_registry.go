package database

import "chirper/internal/models"

// PersistentModels returns the schema-managed GORM models in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Tweet{},
		&models.TweetLike{},
		&models.Follow{},
	}
}
