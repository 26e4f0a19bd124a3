package repository

import (
	"context"
	"database/sql"

	"skycast/pkg/models"
	"skycast/pkg/pool"
)

type UserRepository interface {
	// FindByUsername returns the user and its stored password hash.
	FindByUsername(ctx context.Context, username string) (models.User, string, error)
	Search(ctx context.Context, query string, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	pool *pool.Pool
}

func NewUserRepository(p *pool.Pool) UserRepository {
	return &userRepository{pool: p}
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (models.User, string, error) {
	var user models.User
	var hash string
	err := r.pool.WithConn(ctx, func(c *pool.Conn) error {
		return c.QueryRowContext(ctx,
			`SELECT id, username, email, password, created_at FROM users WHERE username = $1`,
			username,
		).Scan(&user.ID, &user.Username, &user.Email, &hash, &user.CreatedAt)
	})
	if err != nil {
		return models.User{}, "", err
	}
	return user, hash, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	users := []models.User{}
	err := r.pool.WithConn(ctx, func(c *pool.Conn) error {
		var rows *sql.Rows
		var err error
		if query != "" {
			rows, err = c.QueryContext(ctx,
				`SELECT id, username, email FROM users WHERE username LIKE $1 ORDER BY id LIMIT $2 OFFSET $3`,
				"%"+query+"%", limit, offset)
		} else {
			rows, err = c.QueryContext(ctx,
				`SELECT id, username, email FROM users ORDER BY id LIMIT $1 OFFSET $2`,
				limit, offset)
		}
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u models.User
			if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
