package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"flyte-sync/internal/models"
	"flyte-sync/internal/store"
)

// ErrNoSession is returned when no user is logged in locally.
var ErrNoSession = errors.New("no active session")

// Bootstrap owns the single local user row. At most one user is logged
// in at a time; logging in replaces any previous session atomically.
type Bootstrap struct {
	store *store.Store
}

func New(st *store.Store) *Bootstrap {
	return &Bootstrap{store: st}
}

// Current returns the logged-in user, or ErrNoSession when the users
// table is empty.
func (b *Bootstrap) Current(ctx context.Context) (models.User, error) {
	user, err := b.store.GetUser(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrNoSession
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load session: %w", err)
	}
	return user, nil
}

// Login replaces whatever session existed before with the given user
// in a single transaction.
func (b *Bootstrap) Login(ctx context.Context, user models.User) error {
	if user.ID == "" {
		return fmt.Errorf("login: user id is required")
	}
	err := b.store.Tx(ctx, func(txn *store.Txn) error {
		return txn.ReplaceUser(user)
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Printf("session: logged in user=%s", user.ID)
	return nil
}

// Logout removes the local user row. Calling it with no active session
// is a no-op.
func (b *Bootstrap) Logout(ctx context.Context) error {
	err := b.store.Tx(ctx, func(txn *store.Txn) error {
		return txn.DeleteUser()
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	log.Printf("session: logged out")
	return nil
}

// Token exposes the current user's credential for outbound requests.
// It satisfies rest.TokenSource.
func (b *Bootstrap) Token(ctx context.Context) (string, error) {
	user, err := b.Current(ctx)
	if err != nil {
		return "", err
	}
	return user.Token, nil
}
