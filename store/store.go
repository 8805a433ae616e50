package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTokenNotFound   = errors.New("verification token not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicate       = errors.New("record already exists")
)

// Repository is the persistence contract used by the auth service.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	CreateUser(ctx context.Context, user *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	UpdateUserByEmail(ctx context.Context, email string, patch UserPatch) (*User, error)
	UpdateUserByID(ctx context.Context, id string, patch UserPatch) (*User, error)
	MarkEmailVerified(ctx context.Context, email string, at time.Time) error

	UpsertVerificationToken(ctx context.Context, token *VerificationToken) error
	FindVerificationToken(ctx context.Context, identifier string) (*VerificationToken, error)
	DeleteVerificationToken(ctx context.Context, identifier string) error
	ConsumeVerificationToken(ctx context.Context, identifier, token string) error
	DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error)

	FindUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error)
	LinkAccount(ctx context.Context, account *Account) error
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "create user")
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *Store) UpdateUserByEmail(ctx context.Context, email string, patch UserPatch) (*User, error) {
	return s.updateUser(ctx, "email = ?", email, patch)
}

func (s *Store) UpdateUserByID(ctx context.Context, id string, patch UserPatch) (*User, error) {
	return s.updateUser(ctx, "id = ?", id, patch)
}

func (s *Store) updateUser(ctx context.Context, query string, arg any, patch UserPatch) (*User, error) {
	user, err := s.findUser(ctx, query, arg)
	if err != nil {
		return nil, err
	}

	updates := patch.columns()
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return nil, translate(err, "update user")
	}
	return s.FindUserByID(ctx, user.ID)
}

func (s *Store) MarkEmailVerified(ctx context.Context, email string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Update("email_verified", at)
	if result.Error != nil {
		return fmt.Errorf("mark email verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpsertVerificationToken replaces any code already issued for the identifier.
func (s *Store) UpsertVerificationToken(ctx context.Context, token *VerificationToken) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires"}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("upsert verification token: %w", err)
	}
	return nil
}

func (s *Store) FindVerificationToken(ctx context.Context, identifier string) (*VerificationToken, error) {
	var token VerificationToken
	err := s.db.WithContext(ctx).Where("identifier = ?", identifier).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	return &token, nil
}

func (s *Store) DeleteVerificationToken(ctx context.Context, identifier string) error {
	result := s.db.WithContext(ctx).Where("identifier = ?", identifier).Delete(&VerificationToken{})
	if result.Error != nil {
		return fmt.Errorf("delete verification token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ConsumeVerificationToken deletes the record only if it still holds the given
// code. A concurrent re-issue or consume makes it return ErrTokenNotFound.
func (s *Store) ConsumeVerificationToken(ctx context.Context, identifier, token string) error {
	result := s.db.WithContext(ctx).
		Where("identifier = ? AND token = ?", identifier, token).
		Delete(&VerificationToken{})
	if result.Error != nil {
		return fmt.Errorf("consume verification token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *Store) DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires < ?", now).Delete(&VerificationToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired verification tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) FindUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error) {
	var account Account
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return s.FindUserByID(ctx, account.UserID)
}

func (s *Store) LinkAccount(ctx context.Context, account *Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return translate(err, "link account")
	}
	return nil
}

func translate(err error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
