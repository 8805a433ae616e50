package auth

import (
	"context"
	"errors"

	"github.com/WaqasAhmad313/next-auth-app/store"
	"go.uber.org/zap"
)

// A concurrent first sign-in for the same email or account makes the loser's
// insert fail; the rerun then sees the winner's rows.
const federatedAttempts = 2

// FederatedIdentity is an identity asserted by an external provider.
type FederatedIdentity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	EmailVerified     bool
	Name              string
	Image             string
}

// LoginWithOAuth lands a federated sign-in on a local user. A known account
// link wins; otherwise an existing user with the same email is linked only when
// the provider vouches for the address, and a new password-less user is
// created when none exists.
func (s *Service) LoginWithOAuth(ctx context.Context, identity FederatedIdentity) (*LoginResult, error) {
	if identity.Provider == "" || identity.ProviderAccountID == "" || identity.Email == "" {
		return nil, ErrIncompleteIdentity
	}

	var user *store.User
	var err error
	for attempt := 1; attempt <= federatedAttempts; attempt++ {
		user, err = s.landFederatedSignIn(ctx, identity)
		if !errors.Is(err, store.ErrDuplicate) {
			break
		}
		s.logger.Debug("federated sign-in lost a race with a concurrent sign-in", zap.String("provider", identity.Provider), zap.Int("attempt", attempt))
	}
	if errors.Is(err, store.ErrDuplicate) {
		err = ErrFederatedEmailConflict
	}
	if err != nil {
		s.logFailure("federated sign-in failed", identity.Email, err)
		return nil, err
	}

	s.logger.Info("federated sign-in", zap.String("user_id", user.ID), zap.String("provider", identity.Provider))
	return s.issueTokens(user)
}

// landFederatedSignIn resolves the identity to a user and links the account in
// one transaction.
func (s *Service) landFederatedSignIn(ctx context.Context, identity FederatedIdentity) (*store.User, error) {
	var user *store.User
	err := s.store.Transaction(ctx, func(tx store.Repository) error {
		linked, err := tx.FindUserByAccount(ctx, identity.Provider, identity.ProviderAccountID)
		if err == nil {
			user = linked
			return nil
		}
		if !errors.Is(err, store.ErrAccountNotFound) {
			return err
		}

		user, err = s.landFederatedUser(ctx, tx, identity)
		if err != nil {
			return err
		}

		return tx.LinkAccount(ctx, &store.Account{
			UserID:            user.ID,
			Provider:          identity.Provider,
			ProviderAccountID: identity.ProviderAccountID,
		})
	})
	return user, err
}

func (s *Service) landFederatedUser(ctx context.Context, tx store.Repository, identity FederatedIdentity) (*store.User, error) {
	existing, err := tx.FindUserByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if !identity.EmailVerified {
			return nil, ErrFederatedEmailConflict
		}
		if existing.EmailVerified == nil {
			return tx.UpdateUserByID(ctx, existing.ID, store.UserPatch{EmailVerified: ptr(s.now())})
		}
		return existing, nil
	case !errors.Is(err, store.ErrUserNotFound):
		return nil, err
	}

	user := &store.User{Email: identity.Email}
	if identity.Name != "" {
		user.Name = ptr(identity.Name)
	}
	if identity.Image != "" {
		user.Image = ptr(identity.Image)
	}
	if identity.EmailVerified {
		user.EmailVerified = ptr(s.now())
	}

	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func ptr[T any](v T) *T {
	return &v
}
