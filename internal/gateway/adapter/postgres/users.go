package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"observe/internal/domain"
)

const userColumns = `login, password, salt, first_name, last_name, email, permission, change_pwd_uuid, change_pwd_date`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u      domain.User
		token  *string
		issued *time.Time
	)
	if err := row.Scan(&u.Login, &u.PasswordDigest, &u.Salt, &u.FirstName, &u.LastName,
		&u.Email, &u.Permission, &token, &issued); err != nil {
		return domain.User{}, err
	}
	if token != nil {
		u.ResetToken = &domain.ResetToken{Value: *token}
		if issued != nil {
			u.ResetToken.IssuedAt = *issued
		}
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, login string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE login = $1`, login))
	if err != nil {
		return domain.User{}, fmt.Errorf("user %q: %w", login, dbError(err))
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY login`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbError(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (login, password, salt, first_name, last_name, email, permission)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.Login, u.PasswordDigest, u.Salt, u.FirstName, u.LastName, u.Email, u.Permission)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Login, dbError(err))
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u domain.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET password = $2, salt = $3, first_name = $4, last_name = $5, email = $6, permission = $7
		WHERE login = $1`,
		u.Login, u.PasswordDigest, u.Salt, u.FirstName, u.LastName, u.Email, u.Permission)
	if err != nil {
		return fmt.Errorf("updating user %q: %w", u.Login, dbError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", u.Login, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, login string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE login = $1`, login)
	if err != nil {
		return fmt.Errorf("deleting user %q: %w", login, dbError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) SetPermissionAll(ctx context.Context, permission string, except []string) (int64, error) {
	if except == nil {
		except = []string{}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET permission = $1 WHERE NOT (login = ANY($2))`, permission, except)
	if err != nil {
		return 0, fmt.Errorf("updating permissions: %w", dbError(err))
	}
	return tag.RowsAffected(), nil
}

func (s *Store) SetResetToken(ctx context.Context, login string, token domain.ResetToken) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET change_pwd_uuid = $2, change_pwd_date = $3 WHERE login = $1`,
		login, token.Value, token.IssuedAt)
	if err != nil {
		return fmt.Errorf("storing reset token for %q: %w", login, dbError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
	}
	return nil
}

// ConsumeResetToken swaps the digest and clears the token in one conditional
// update, so at most one redemption of a token succeeds.
func (s *Store) ConsumeResetToken(ctx context.Context, login, token, digest, salt string) error {
	return s.withTx(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE users
			SET password = $3, salt = $4, change_pwd_uuid = NULL, change_pwd_date = NULL
			WHERE login = $1 AND change_pwd_uuid = $2`,
			login, token, digest, salt)
		if err != nil {
			return fmt.Errorf("redeeming reset token for %q: %w", login, dbError(err))
		}
		if tag.RowsAffected() == 1 {
			return nil
		}

		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE login = $1)`, login).Scan(&exists); err != nil {
			return fmt.Errorf("looking up user %q: %w", login, dbError(err))
		}
		if !exists {
			return fmt.Errorf("user %q: %w", login, domain.ErrNotFound)
		}
		return domain.ErrInvalidToken
	})
}
