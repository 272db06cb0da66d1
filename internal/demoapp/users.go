package demoapp

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/gotrs-io/boardcheck/internal/config"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Users is an in-memory account store keyed by lowercase login.
type Users struct {
	hashes map[string][]byte
	cost   int
}

// NewUsers hashes the given credentials with bcrypt.
func NewUsers(cost int, accounts ...config.Credentials) (*Users, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	u := &Users{hashes: make(map[string][]byte, len(accounts)), cost: cost}
	for _, a := range accounts {
		if err := u.Add(a.Username, a.Password); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Add stores or replaces an account.
func (u *Users) Add(username, password string) error {
	login := strings.ToLower(strings.TrimSpace(username))
	if login == "" {
		return errors.New("username must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password for %s: %w", login, err)
	}
	u.hashes[login] = hash
	return nil
}

// Authenticate returns ErrInvalidCredentials for an unknown user or a wrong
// password.
func (u *Users) Authenticate(username, password string) error {
	hash, ok := u.hashes[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
