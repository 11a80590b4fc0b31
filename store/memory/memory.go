// Package memory provides an in-memory UserStore for tests and examples. It
// is concurrently safe and keeps no state beyond the process lifetime.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-uuid"
	"github.com/quillcms/auth/oauth"
)

// Store implements oauth.UserStore backed by per-collection maps.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]*record
}

type record struct {
	user     *oauth.User
	password string
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: map[string]map[string]*record{}}
}

// FindOne returns the first user matching the filter, or oauth.ErrNotFound.
func (s *Store) FindOne(_ context.Context, collection string, filter oauth.UserFilter) (*oauth.User, error) {
	const op = "memory.Store.FindOne"
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.collections[collection] {
		if matches(r.user, filter) {
			return copyUser(r.user), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, oauth.ErrNotFound)
}

// Create stores a new user under a generated id.
func (s *Store) Create(_ context.Context, collection string, user oauth.NewUser) (*oauth.User, error) {
	const op = "memory.Store.Create"
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate id: %w", op, err)
	}
	u := &oauth.User{
		ID:     id,
		Email:  user.Email,
		Fields: copyFields(user.Fields),
		Links:  append([]oauth.Link(nil), user.Links...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]*record{}
	}
	s.collections[collection][id] = &record{user: u, password: user.Password}
	return copyUser(u), nil
}

// Update merges fields onto the record and, when update.Links is non-nil,
// replaces the link array.
func (s *Store) Update(_ context.Context, collection string, id string, update oauth.UserUpdate) (*oauth.User, error) {
	const op = "memory.Store.Update"
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s: user %s: %w", op, id, oauth.ErrNotFound)
	}
	if r.user.Fields == nil {
		r.user.Fields = map[string]interface{}{}
	}
	for k, v := range update.Fields {
		r.user.Fields[k] = v
	}
	if update.Links != nil {
		r.user.Links = append([]oauth.Link(nil), update.Links...)
	}
	return copyUser(r.user), nil
}

// FindByID returns the user with the given id, or oauth.ErrNotFound.
func (s *Store) FindByID(_ context.Context, collection string, id string) (*oauth.User, error) {
	const op = "memory.Store.FindByID"
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s: user %s: %w", op, id, oauth.ErrNotFound)
	}
	return copyUser(r.user), nil
}

func matches(u *oauth.User, filter oauth.UserFilter) bool {
	for _, l := range u.Links {
		if l.Strategy == filter.LinkStrategy && l.Sub == filter.LinkSub {
			return true
		}
	}
	return filter.Email != "" && u.Email == filter.Email
}

func copyUser(u *oauth.User) *oauth.User {
	out := *u
	out.Fields = copyFields(u.Fields)
	out.Links = append([]oauth.Link(nil), u.Links...)
	return &out
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
