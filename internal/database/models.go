package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an item.
type Status int

const (
	StatusAvailable Status = iota
	StatusCreated
	StatusProcessing
	StatusDeleted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusCreated:
		return "created"
	case StatusProcessing:
		return "processing"
	case StatusDeleted:
		return "deleted"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText renders the status by name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s >= StatusAvailable && s <= StatusError
}

// User is a registered catalog user. The anonymous user has ID 0 and is
// never stored.
type User struct {
	ID           int64     `json:"-"`
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	Login        string    `json:"-"`
	IsPublic     bool      `json:"isPublic"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Anon returns the anonymous user.
func Anon() *User {
	return &User{Name: "anon"}
}

// IsAnon reports whether u is the anonymous user. A nil user is anonymous.
func (u *User) IsAnon() bool {
	return u == nil || u.ID == 0
}

// Scope returns the known tags scope the user reads from.
func (u *User) Scope() Scope {
	if u.IsAnon() {
		return AnonScope()
	}
	return UserScope(u.ID)
}

// Item is a catalog entry. Collections are items with IsCollection set.
// ID doubles as the creation ordinal used for pagination.
type Item struct {
	ID           int64     `json:"number"`
	UUID         uuid.UUID `json:"uuid"`
	ParentID     *int64    `json:"-"`
	OwnerID      int64     `json:"-"`
	Name         string    `json:"name"`
	IsCollection bool      `json:"isCollection"`
	Status       Status    `json:"status"`
	Tags         []string  `json:"tags"`
	Permissions  []int64   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OwnTags returns the tags assigned directly to the item.
func (i Item) OwnTags() []string {
	return i.Tags
}

// HasParent reports whether the item sits inside a collection.
func (i Item) HasParent() bool {
	return i.ParentID != nil
}

// PermittedTo reports whether userID appears in the item's permissions.
func (i Item) PermittedTo(userID int64) bool {
	for _, id := range i.Permissions {
		if id == userID {
			return true
		}
	}
	return false
}

// ItemTags pairs an item ordinal with its stored computed tags.
type ItemTags struct {
	ItemID int64
	Tags   []string
}

// Scope selects which known tags table a read or write touches.
// The zero value is the anonymous scope.
type Scope struct {
	userID int64
}

// AnonScope is the shared scope of anonymous callers.
func AnonScope() Scope {
	return Scope{}
}

// UserScope is the private scope of a registered user.
func UserScope(userID int64) Scope {
	return Scope{userID: userID}
}

// IsAnon reports whether the scope is the anonymous one.
func (s Scope) IsAnon() bool {
	return s.userID == 0
}

// UserID returns the scoped user id, zero for anon.
func (s Scope) UserID() int64 {
	return s.userID
}

func (s Scope) String() string {
	if s.IsAnon() {
		return "anon"
	}
	return fmt.Sprintf("user:%d", s.userID)
}

// Order is the result ordering of a search.
type Order string

const (
	OrderAsc    Order = "asc"
	OrderDesc   Order = "desc"
	OrderRandom Order = "random"
)

// ParseOrder accepts "asc", "desc" or "random", case-insensitively.
func ParseOrder(s string) (Order, bool) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case OrderAsc, OrderDesc, OrderRandom:
		return o, true
	default:
		return "", false
	}
}

// Plan controls ordering and keyset pagination of a search.
type Plan struct {
	Order    Order
	LastSeen int64
	Limit    int
}

// Filter restricts which items a search or count considers. Tags must
// already be casefolded.
type Filter struct {
	User            *User
	Include         []string
	Exclude         []string
	CollectionsOnly bool
	DirectOnly      bool
}

// Stats holds catalog counts.
type Stats struct {
	PublicUsers   int `json:"publicUsers"`
	PrivateUsers  int `json:"privateUsers"`
	Items         int `json:"items"`
	Collections   int `json:"collections"`
	DeletedItems  int `json:"deletedItems"`
	KnownTagsUser int `json:"knownTagsUser"`
	KnownTagsAnon int `json:"knownTagsAnon"`
}
