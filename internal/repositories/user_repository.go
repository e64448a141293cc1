package repositories

import "katalog/internal/models"

// UserRepository is the account store behind registration and login.
// Lookups return an error when no user matches.
type UserRepository interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
}
