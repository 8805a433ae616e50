package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	Name          *string    `json:"name"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	EmailVerified *time.Time `json:"emailVerified"`
	Image         *string    `json:"image"`
	PasswordHash  *string    `json:"-" gorm:"column:password"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) DisplayName() string {
	if u.Name != nil {
		return *u.Name
	}
	return ""
}

// VerificationToken holds the single live one-time code for an identifier.
type VerificationToken struct {
	Identifier string    `gorm:"primaryKey;size:255"`
	Token      string    `gorm:"size:16;not null"`
	Expires    time.Time `gorm:"index;not null"`
}

func (v *VerificationToken) ExpiredAt(now time.Time) bool {
	return now.After(v.Expires)
}

// Account links a user to an identity at an external provider.
type Account struct {
	ID                string    `gorm:"primaryKey;size:36"`
	UserID            string    `gorm:"index;size:36;not null"`
	Provider          string    `gorm:"uniqueIndex:idx_account_provider;size:64;not null"`
	ProviderAccountID string    `gorm:"uniqueIndex:idx_account_provider;size:255;not null"`
	CreatedAt         time.Time
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// UserPatch lists the mutable user fields. Nil fields are left untouched.
type UserPatch struct {
	Name          *string
	Email         *string
	Image         *string
	PasswordHash  *string
	EmailVerified *time.Time
}

func (p UserPatch) columns() map[string]any {
	updates := make(map[string]any)
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Email != nil {
		updates["email"] = *p.Email
	}
	if p.Image != nil {
		updates["image"] = *p.Image
	}
	if p.PasswordHash != nil {
		updates["password"] = *p.PasswordHash
	}
	if p.EmailVerified != nil {
		updates["email_verified"] = *p.EmailVerified
	}
	return updates
}

func Models() []any {
	return []any{&User{}, &VerificationToken{}, &Account{}}
}
