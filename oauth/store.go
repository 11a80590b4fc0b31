package oauth

import "context"

// Link associates a local user with a provider subject. A user holds at most
// one link per strategy name; the callback processor replaces a strategy's
// link rather than appending a duplicate.
type Link struct {
	// Strategy is the name of the Strategy that produced the link.
	Strategy string

	// Sub is the provider-issued stable subject identifier.
	Sub string
}

// User is the slice of a local user record this package reads and writes.
type User struct {
	ID     string
	Email  string
	Fields map[string]interface{}
	Links  []Link
}

// NewUser describes a user record to create. Password is a random
// placeholder: the account is OAuth-only and the placeholder blocks
// password-based login.
type NewUser struct {
	Email    string
	Password string
	Fields   map[string]interface{}
	Links    []Link
}

// UserUpdate describes a partial update. Fields are merged onto the record;
// a non-nil Links slice replaces the link array wholesale.
type UserUpdate struct {
	Fields map[string]interface{}
	Links  []Link
}

// UserFilter matches a user holding the (LinkStrategy, LinkSub) link, or,
// when Email is non-empty, a user with that email.
type UserFilter struct {
	LinkStrategy string
	LinkSub      string
	Email        string
}

// UserStore is the persistence collaborator. FindOne and FindByID return
// ErrNotFound (possibly wrapped) when no record matches; FindByID performs
// no relational expansion.
//
// The callback's find-then-create is not atomic, so two concurrent first
// logins for the same subject can race to create duplicate accounts.
// Implementations should enforce uniqueness of (strategy, sub) across users
// where the backing store allows it; store/sqlite does so with a unique
// index.
type UserStore interface {
	FindOne(ctx context.Context, collection string, filter UserFilter) (*User, error)
	Create(ctx context.Context, collection string, user NewUser) (*User, error)
	Update(ctx context.Context, collection string, id string, update UserUpdate) (*User, error)
	FindByID(ctx context.Context, collection string, id string) (*User, error)
}
