package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"skycast/pkg/core"
	"skycast/pkg/models"
	"skycast/pkg/repository"
	"skycast/pkg/session"

	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	// Login authenticates a credential pair and issues a session.
	// The only way through is: username found AND stored hash matches.
	Login(ctx context.Context, username, password string) (models.Session, error)
	Logout(token string)
}

type authService struct {
	repo     repository.UserRepository
	sessions *session.Store
}

// dummyHash keeps the bcrypt comparison on the unknown-username path so
// response timing does not reveal whether the username exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("skycast-nobody"), bcrypt.DefaultCost)

func NewAuthService(repo repository.UserRepository, sessions *session.Store) AuthService {
	return &authService{repo: repo, sessions: sessions}
}

func (s *authService) Login(ctx context.Context, username, password string) (models.Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return models.Session{}, core.ErrInvalidCredentials
	}

	user, hash, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return models.Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("auth: user lookup: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.Session{}, core.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(user.ID, user.Username)
	if err != nil {
		return models.Session{}, err
	}
	log.Printf("[AUTH] login user_id=%d username=%s", user.ID, user.Username)
	return sess, nil
}

func (s *authService) Logout(token string) {
	s.sessions.Destroy(token)
}
