package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
)

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = errors.New("username already exists")

// UserRepo stores author accounts.
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create stores a new user; passwordHash must already be hashed.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	user := models.User{Username: username, Email: strings.TrimSpace(email), PasswordHash: passwordHash}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindOrCreateExternal returns the account linked to an OAuth identity, creating it
// on first sign-in. The username is suffixed with -2, -3, ... when already taken.
func (r *UserRepo) FindOrCreateExternal(ctx context.Context, provider, externalID, username, email string) (*models.User, error) {
	db := r.db.WithContext(ctx)
	email = strings.TrimSpace(email)

	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, externalID).First(&user).Error
	if err == nil {
		if email != "" && email != user.Email {
			if err := db.Model(&user).Update("email", email).Error; err != nil {
				return nil, fmt.Errorf("update external user: %w", err)
			}
			user.Email = email
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find external user: %w", err)
	}

	name, err := r.availableUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	user = models.User{Username: name, Email: email, Provider: provider, ProviderID: externalID}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create external user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) availableUsername(ctx context.Context, base string) (string, error) {
	for i := 1; i <= 50; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", name).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if count == 0 {
			return name, nil
		}
	}
	return "", ErrUsernameTaken
}
