package database

import (
	"context"
	"errors"
	"fmt"

	"grooby/identity"
	"grooby/models"

	"gorm.io/gorm"
)

// AccountStore is an identity.AccountStore on the users table.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, a identity.Account) error {
	user := models.User{
		ID:           a.ID,
		Email:        identity.NormalizeEmail(a.Email),
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return identity.ErrAccountExists
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (identity.Account, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", identity.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	if err != nil {
		return identity.Account{}, fmt.Errorf("database error: %w", err)
	}
	return identity.Account{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}, nil
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}
