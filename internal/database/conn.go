package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn runs catalog queries either in autocommit mode or inside a
// transaction opened by Database.Transaction.
type Conn struct {
	q       querier
	timeout time.Duration
}

func (c *Conn) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = `i.id, i.uuid, i.parent_id, i.owner_id, i.name, i.is_collection,
	i.status, i.tags, i.permissions, i.created_at, i.updated_at`

// scanItem decodes one items row. Malformed uuid, status or JSON columns
// fail with ErrMalformedRow instead of yielding a partial item.
func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		rawUUID   string
		parentID  sql.NullInt64
		status    int
		rawTags   string
		rawPerms  string
		createdAt int64
		updatedAt int64
	)

	if err := row.Scan(&item.ID, &rawUUID, &parentID, &item.OwnerID, &item.Name,
		&item.IsCollection, &status, &rawTags, &rawPerms, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d uuid: %v", ErrMalformedRow, item.ID, err)
	}
	item.UUID = id

	if item.Status = Status(status); !item.Status.Valid() {
		return nil, fmt.Errorf("%w: item %d status %d", ErrMalformedRow, item.ID, status)
	}

	if parentID.Valid {
		p := parentID.Int64
		item.ParentID = &p
	}

	if item.Tags, err = decodeTags(rawTags); err != nil {
		return nil, fmt.Errorf("%w: item %d tags: %v", ErrMalformedRow, item.ID, err)
	}

	if err := json.Unmarshal([]byte(rawPerms), &item.Permissions); err != nil {
		return nil, fmt.Errorf("%w: item %d permissions: %v", ErrMalformedRow, item.ID, err)
	}
	if item.Permissions == nil {
		item.Permissions = []int64{}
	}

	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)

	return &item, nil
}

const userColumns = `id, uuid, name, login, is_public, registered_at`

func scanUser(row rowScanner) (*User, error) {
	var (
		user         User
		rawUUID      string
		registeredAt int64
	)

	if err := row.Scan(&user.ID, &rawUUID, &user.Name, &user.Login, &user.IsPublic, &registeredAt); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %d uuid: %v", ErrMalformedRow, user.ID, err)
	}
	user.UUID = id
	user.RegisteredAt = time.Unix(registeredAt, 0)

	return &user, nil
}

// decodeTags parses a JSON string array. A JSON null decodes to an empty slice.
func decodeTags(raw string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
