package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"skycast/pkg/core"
	"skycast/pkg/pool"
	"skycast/pkg/repository"
	"skycast/pkg/session"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"
)

const findUserQuery = `SELECT id, username, email, password, created_at FROM users WHERE username = \$1`

func newAuthFixture(t *testing.T, maxSessions int) (AuthService, sqlmock.Sqlmock, *session.Store) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p, err := pool.New(db, 1, time.Second)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	t.Cleanup(p.Close)

	sessions := session.NewStore(time.Hour, maxSessions)
	svc := NewAuthService(repository.NewUserRepository(p), sessions)
	return svc, mock, sessions
}

func userRow(t *testing.T, id int, username, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return sqlmock.NewRows([]string{"id", "username", "email", "password", "created_at"}).
		AddRow(id, username, username+"@skycast.local", string(hash), time.Now())
}

func TestLoginSuccessIssuesSession(t *testing.T) {
	svc, mock, sessions := newAuthFixture(t, 100)

	mock.ExpectQuery(findUserQuery).WithArgs("alice").
		WillReturnRows(userRow(t, 7, "alice", "correct-horse"))

	// Username is normalized before it reaches the store.
	sess, err := svc.Login(context.Background(), "  Alice ", "correct-horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if sess.UserID != 7 || sess.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if _, ok := sessions.Validate(sess.Token); !ok {
		t.Fatal("issued token does not validate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock, sessions := newAuthFixture(t, 100)

	mock.ExpectQuery(findUserQuery).WithArgs("alice").
		WillReturnRows(userRow(t, 7, "alice", "correct-horse"))

	_, err := svc.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if sessions.Len() != 0 {
		t.Fatal("session issued despite failed login")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, mock, _ := newAuthFixture(t, 100)

	mock.ExpectQuery(findUserQuery).WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginInjectionAttemptFails(t *testing.T) {
	svc, mock, _ := newAuthFixture(t, 100)

	// The crafted username travels as a bind parameter, matches no row,
	// and that is the end of it.
	mock.ExpectQuery(findUserQuery).WithArgs("admin'--").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Login(context.Background(), "admin'--", "anything")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginNoPasswordValueBypass(t *testing.T) {
	svc, mock, sessions := newAuthFixture(t, 100)

	// A low user id and the literal password "admin" must not be
	// independently sufficient; only the stored hash decides.
	mock.ExpectQuery(findUserQuery).WithArgs("admin").
		WillReturnRows(userRow(t, 1, "admin", "real-admin-secret"))

	_, err := svc.Login(context.Background(), "admin", "admin")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if sessions.Len() != 0 {
		t.Fatal("bypass path issued a session")
	}
}

func TestLoginEmptyFields(t *testing.T) {
	svc, _, _ := newAuthFixture(t, 100)

	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "alice", ""); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginSessionCapacity(t *testing.T) {
	svc, mock, _ := newAuthFixture(t, 1)

	mock.ExpectQuery(findUserQuery).WithArgs("alice").
		WillReturnRows(userRow(t, 1, "alice", "pw-alice"))
	mock.ExpectQuery(findUserQuery).WithArgs("bob").
		WillReturnRows(userRow(t, 2, "bob", "pw-bob"))

	if _, err := svc.Login(context.Background(), "alice", "pw-alice"); err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	_, err := svc.Login(context.Background(), "bob", "pw-bob")
	if !errors.Is(err, core.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, mock, sessions := newAuthFixture(t, 100)

	mock.ExpectQuery(findUserQuery).WithArgs("alice").
		WillReturnRows(userRow(t, 1, "alice", "pw"))

	sess, err := svc.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	svc.Logout(sess.Token)
	if _, ok := sessions.Validate(sess.Token); ok {
		t.Fatal("token validates after logout")
	}
	svc.Logout(sess.Token) // second logout is a no-op
	svc.Logout("")         // so is an absent token
}
