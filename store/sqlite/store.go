// Package sqlite provides a SQLite-backed oauth.UserStore. The schema keeps
// provider links in their own table with a UNIQUE(strategy, sub) index, so
// two racing first logins for the same subject cannot create two accounts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-uuid"
	"github.com/quillcms/auth/oauth"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	email      TEXT NOT NULL,
	password   TEXT NOT NULL DEFAULT '',
	fields     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS users_collection_email ON users(collection, email);

CREATE TABLE IF NOT EXISTS oauth_links (
	user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	strategy TEXT NOT NULL,
	sub      TEXT NOT NULL,
	UNIQUE(strategy, sub)
);
CREATE INDEX IF NOT EXISTS oauth_links_user ON oauth_links(user_id);
`

// Store persists users and their provider links in SQLite.
type Store struct {
	db *sql.DB
}

var _ oauth.UserStore = (*Store)(nil)

// Open opens (creating if needed) the store at path and applies the schema.
func Open(path string) (*Store, error) {
	const op = "sqlite.Open"
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: storage path is required: %w", op, oauth.ErrInvalidParameter)
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open sqlite db: %w", op, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping sqlite db: %w", op, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", op, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindOne returns the user holding the filter's (strategy, sub) link or,
// when the filter carries an email, the user with that email. Link matches
// win over email matches.
func (s *Store) FindOne(ctx context.Context, collection string, filter oauth.UserFilter) (*oauth.User, error) {
	const op = "sqlite.Store.FindOne"
	const q = `
SELECT u.id FROM users u
WHERE u.collection = ?
  AND (EXISTS (SELECT 1 FROM oauth_links l WHERE l.user_id = u.id AND l.strategy = ? AND l.sub = ?)
       OR (? <> '' AND u.email = ?))
ORDER BY EXISTS (SELECT 1 FROM oauth_links l WHERE l.user_id = u.id AND l.strategy = ? AND l.sub = ?) DESC
LIMIT 1`
	var id string
	err := s.db.QueryRowContext(ctx, q,
		collection,
		filter.LinkStrategy, filter.LinkSub,
		filter.Email, filter.Email,
		filter.LinkStrategy, filter.LinkSub,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, oauth.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.FindByID(ctx, collection, id)
}

// Create inserts the user and its links in one transaction. A link colliding
// with another user's (strategy, sub) fails the whole create.
func (s *Store) Create(ctx context.Context, collection string, user oauth.NewUser) (*oauth.User, error) {
	const op = "sqlite.Store.Create"
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate id: %w", op, err)
	}
	fields, err := encodeFields(user.Fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, collection, email, password, fields) VALUES (?, ?, ?, ?, ?)`,
		id, collection, user.Email, user.Password, fields,
	); err != nil {
		return nil, fmt.Errorf("%s: insert user: %w", op, err)
	}
	for _, l := range user.Links {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oauth_links (user_id, strategy, sub) VALUES (?, ?, ?)`,
			id, l.Strategy, l.Sub,
		); err != nil {
			return nil, fmt.Errorf("%s: insert link %s/%s: %w", op, l.Strategy, l.Sub, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.FindByID(ctx, collection, id)
}

// Update merges fields onto the stored JSON and, when update.Links is
// non-nil, replaces the user's link rows.
func (s *Store) Update(ctx context.Context, collection string, id string, update oauth.UserUpdate) (*oauth.User, error) {
	const op = "sqlite.Store.Update"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT fields FROM users WHERE id = ? AND collection = ?`, id, collection,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: user %s: %w", op, id, oauth.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%s: decode fields: %w", op, err)
	}
	for k, v := range update.Fields {
		fields[k] = v
	}
	encoded, err := encodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET fields = ? WHERE id = ?`, encoded, id,
	); err != nil {
		return nil, fmt.Errorf("%s: update fields: %w", op, err)
	}

	if update.Links != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_links WHERE user_id = ?`, id); err != nil {
			return nil, fmt.Errorf("%s: clear links: %w", op, err)
		}
		for _, l := range update.Links {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO oauth_links (user_id, strategy, sub) VALUES (?, ?, ?)`,
				id, l.Strategy, l.Sub,
			); err != nil {
				return nil, fmt.Errorf("%s: insert link %s/%s: %w", op, l.Strategy, l.Sub, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.FindByID(ctx, collection, id)
}

// FindByID loads a single user with its links.
func (s *Store) FindByID(ctx context.Context, collection string, id string) (*oauth.User, error) {
	const op = "sqlite.Store.FindByID"
	u := &oauth.User{ID: id}
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, fields FROM users WHERE id = ? AND collection = ?`, id, collection,
	).Scan(&u.Email, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: user %s: %w", op, id, oauth.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Fields = map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &u.Fields); err != nil {
		return nil, fmt.Errorf("%s: decode fields: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, sub FROM oauth_links WHERE user_id = ? ORDER BY strategy, sub`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: load links: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var l oauth.Link
		if err := rows.Scan(&l.Strategy, &l.Sub); err != nil {
			return nil, fmt.Errorf("%s: scan link: %w", op, err)
		}
		u.Links = append(u.Links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func encodeFields(fields map[string]interface{}) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}
