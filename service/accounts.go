package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/auth"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/model"
)

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type Registration struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=320"`
	// bcrypt ignores anything past 72 bytes
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Accounts struct {
	store  database.Store
	tokens TokenIssuer
	now    func() time.Time
}

func NewAccounts(store database.Store, tokens TokenIssuer) *Accounts {
	return &Accounts{
		store:  store,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Accounts) Register(ctx context.Context, in Registration) (model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	if err := check("Invalid registration", in); err != nil {
		return model.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, errors.Wrap(err, "hash password")
	}

	user := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	err = s.store.CreateUser(ctx, &user)
	if errors.Is(err, database.ErrDuplicate) {
		return model.User{}, ErrEmailTaken
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "register")
	}
	return user, nil
}

// Login checks the credentials and issues a bearer token. An unknown email
// and a wrong password fail the same way.
func (s *Accounts) Login(ctx context.Context, in Credentials) (string, model.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check("Invalid credentials", in); err != nil {
		return "", model.User{}, err
	}

	user, err := s.store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, database.ErrNotFound) {
		return "", model.User{}, ErrUnauthenticated
	}
	if err != nil {
		return "", model.User{}, errors.Wrap(err, "login")
	}

	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return "", model.User{}, ErrUnauthenticated
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", model.User{}, errors.Wrap(err, "login.issue token")
	}
	return token, user, nil
}

func (s *Accounts) Me(ctx context.Context, userID string) (model.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "me")
	}
	return user, nil
}
