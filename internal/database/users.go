package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts u and fills in its ID, and its UUID when unset.
func (c *Conn) CreateUser(ctx context.Context, u *User) error {
	done := observeQuery("create_user")

	if strings.TrimSpace(u.Login) == "" {
		err := errors.New("user login cannot be empty")
		done(err)
		return err
	}
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now()
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.q.ExecContext(ctx,
		"INSERT INTO users (uuid, name, login, is_public, registered_at) VALUES (?, ?, ?, ?, ?)",
		u.UUID.String(), u.Name, u.Login, u.IsPublic, u.RegisteredAt.Unix(),
	)
	if err != nil {
		done(err)
		return wrap("create user", err)
	}

	u.ID, err = result.LastInsertId()
	done(err)
	return wrap("create user", err)
}

// GetUser loads a user by id.
func (c *Conn) GetUser(ctx context.Context, id int64) (*User, error) {
	done := observeQuery("get_user")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, err := scanUser(c.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, notFound("user", id)
	}
	done(err)
	if err != nil {
		return nil, wrap("get user", err)
	}
	return user, nil
}

// GetUserByUUID loads a user by its public identifier.
func (c *Conn) GetUserByUUID(ctx context.Context, id uuid.UUID) (*User, error) {
	done := observeQuery("get_user_by_uuid")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, err := scanUser(c.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE uuid = ?", id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, notFound("user", id)
	}
	done(err)
	if err != nil {
		return nil, wrap("get user by uuid", err)
	}
	return user, nil
}

// ListUsers returns every registered user ordered by id.
func (c *Conn) ListUsers(ctx context.Context) ([]User, error) {
	done := observeQuery("list_users")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		done(err)
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			done(err)
			return nil, wrap("list users", err)
		}
		users = append(users, *user)
	}

	err = rows.Err()
	done(err)
	return users, wrap("list users", err)
}

// PublicUserIDs returns the ids of users whose items anon may see.
func (c *Conn) PublicUserIDs(ctx context.Context) ([]int64, error) {
	done := observeQuery("public_user_ids")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.q.QueryContext(ctx, "SELECT id FROM users WHERE is_public = 1 ORDER BY id")
	if err != nil {
		done(err)
		return nil, wrap("public user ids", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			done(err)
			return nil, wrap("public user ids", err)
		}
		ids = append(ids, id)
	}

	err = rows.Err()
	done(err)
	return ids, wrap("public user ids", err)
}

// IsPublicUser reports whether the user's items are visible to anon.
func (c *Conn) IsPublicUser(ctx context.Context, userID int64) (bool, error) {
	done := observeQuery("is_public_user")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var public bool
	err := c.q.QueryRowContext(ctx, "SELECT is_public FROM users WHERE id = ?", userID).Scan(&public)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return false, notFound("user", userID)
	}
	done(err)
	return public, wrap("is public user", err)
}

// SetUserPublic changes whether the user's items are visible to anon.
// Anon known tags are not adjusted here; run an anon rebuild afterwards.
func (c *Conn) SetUserPublic(ctx context.Context, userID int64, public bool) error {
	done := observeQuery("set_user_public")

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, err := c.q.ExecContext(ctx, "UPDATE users SET is_public = ? WHERE id = ?", public, userID)
	if err != nil {
		done(err)
		return wrap("set user public", err)
	}
	n, err := result.RowsAffected()
	done(err)
	if err != nil {
		return wrap("set user public", err)
	}
	if n == 0 {
		return notFound("user", userID)
	}
	return nil
}
