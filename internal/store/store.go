// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ztrue/tracerr"
	_ "modernc.org/sqlite"

	"github.com/tamzrod/modbus-viewer/internal/device"
)

var (
	// ErrNoState: the modbus table has no rows yet.
	ErrNoState = errors.New("store: no modbus data found")
	// ErrUnknownToken: no user owns the token.
	ErrUnknownToken = errors.New("store: unknown token")
)

const schema = `
CREATE TABLE IF NOT EXISTS modbus (
	ip TEXT PRIMARY KEY,
	di TEXT,
	co TEXT,
	ir TEXT,
	hr TEXT
);
CREATE TABLE IF NOT EXISTS tokens (
	username TEXT PRIMARY KEY,
	password TEXT
);`

// State is one device row: block fields already encoded as comma strings.
type State struct {
	IP string
	DI string
	CO string
	IR string
	HR string
}

// Store is the gateway's sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("store: open %s: %w", path, err))
	}
	// one writer at a time; avoids SQLITE_BUSY between poll loop and handlers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, tracerr.Wrap(fmt.Errorf("store: create schema: %w", err))
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveState upserts the full device row.
func (s *Store) SaveState(ctx context.Context, st State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO modbus (ip, di, co, ir, hr)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			di = excluded.di,
			co = excluded.co,
			ir = excluded.ir,
			hr = excluded.hr`,
		st.IP, st.DI, st.CO, st.IR, st.HR,
	)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("store: save state ip=%s: %w", st.IP, err))
	}
	return nil
}

// SaveField updates one block field of the device row, creating the row if needed.
func (s *Store) SaveField(ctx context.Context, ip, field, value string) error {
	return s.SaveFields(ctx, ip, map[string]string{field: value})
}

// SaveFields updates the given block fields of the device row in one transaction,
// creating the row if needed. Fields not named keep their stored value.
func (s *Store) SaveFields(ctx context.Context, ip string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	set := make(map[string]string, len(fields))
	for name, v := range fields {
		name = strings.ToLower(name)
		if !device.ValidField(name) {
			return fmt.Errorf("store: invalid modbus field %q", name)
		}
		set[name] = v
	}

	cols := make([]string, 0, len(set))
	args := make([]any, 0, len(set)+1)
	for _, name := range device.Fields {
		if v, ok := set[name]; ok {
			cols = append(cols, name+" = ?")
			args = append(args, v)
		}
	}
	args = append(args, ip)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO modbus (ip) VALUES (?)`, ip); err != nil {
		return tracerr.Wrap(fmt.Errorf("store: insert ip=%s: %w", ip, err))
	}
	// column names come from device.Fields only
	q := `UPDATE modbus SET ` + strings.Join(cols, ", ") + ` WHERE ip = ?`
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return tracerr.Wrap(fmt.Errorf("store: update ip=%s: %w", ip, err))
	}
	return tracerr.Wrap(tx.Commit())
}

// FirstState returns the first device row. ErrNoState when the table is empty.
func (s *Store) FirstState(ctx context.Context) (State, error) {
	var (
		st             State
		di, co, ir, hr sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT ip, di, co, ir, hr FROM modbus LIMIT 1`).
		Scan(&st.IP, &di, &co, &ir, &hr)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNoState
	}
	if err != nil {
		return State{}, tracerr.Wrap(fmt.Errorf("store: read state: %w", err))
	}
	st.DI, st.CO, st.IR, st.HR = di.String, co.String, ir.String, hr.String
	return st, nil
}

// UserForToken returns the username owning token. ErrUnknownToken if none.
func (s *Store) UserForToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnknownToken
	}
	var user string
	err := s.db.QueryRowContext(ctx, `SELECT username FROM tokens WHERE password = ?`, token).Scan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownToken
	}
	if err != nil {
		return "", tracerr.Wrap(fmt.Errorf("store: token lookup: %w", err))
	}
	return user, nil
}

// PutUser creates the user or replaces its token.
func (s *Store) PutUser(ctx context.Context, username, token string) error {
	username = strings.TrimSpace(username)
	token = strings.TrimSpace(token)
	if username == "" || token == "" {
		return errors.New("store: username and token cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (username, password)
		VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET password = excluded.password`,
		username, token,
	)
	if err != nil {
		return tracerr.Wrap(fmt.Errorf("store: put user %s: %w", username, err))
	}
	return nil
}
