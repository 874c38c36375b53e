// Package sqldriver implements history.Driver over database/sql. It is
// database-agnostic and is embedded by the sqlite and postgres drivers.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/history"
)

// Placeholder is the bind parameter style of the underlying database.
type Placeholder int

const (
	// Question uses "?" placeholders (SQLite).
	Question Placeholder = iota

	// Dollar uses "$1, $2, ..." placeholders (PostgreSQL).
	Dollar
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		sources TEXT NOT NULL DEFAULT '[]',
		suggested_questions TEXT NOT NULL DEFAULT '[]',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exchanges_created_at ON exchanges (created_at)`,
}

const selectColumns = `id, session_id, question, answer, language, sources, suggested_questions, created_at`

// Driver provides history storage over a *sql.DB.
type Driver struct {
	DB          *sql.DB
	placeholder Placeholder
}

// New wraps db and creates the exchanges table if it does not exist.
func New(ctx context.Context, db *sql.DB, p Placeholder) (*Driver, error) {
	d := &Driver{DB: db, placeholder: p}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return d, nil
}

// Put stores an exchange. Returns true if it was newly inserted.
func (d *Driver) Put(ctx context.Context, ex *history.Exchange) (bool, error) {
	if ex == nil {
		return false, errors.New("cannot store nil exchange")
	}
	if ex.ID == "" {
		return false, errors.New("exchange id is required")
	}

	sources, err := json.Marshal(nonNil(ex.Sources))
	if err != nil {
		return false, fmt.Errorf("failed to marshal sources: %w", err)
	}
	suggested, err := json.Marshal(nonNil(ex.SuggestedQuestions))
	if err != nil {
		return false, fmt.Errorf("failed to marshal suggested questions: %w", err)
	}

	res, err := d.DB.ExecContext(ctx, d.bind(`INSERT INTO exchanges
		(id, session_id, question, answer, language, sources, suggested_questions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		ex.ID, ex.SessionID, ex.Question, ex.Answer, ex.Language,
		string(sources), string(suggested), ex.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert exchange: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Get retrieves an exchange by ID.
func (d *Driver) Get(ctx context.Context, id string) (*history.Exchange, error) {
	row := d.DB.QueryRowContext(ctx, d.bind(`SELECT `+selectColumns+` FROM exchanges WHERE id = ?`), id)

	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// List returns up to limit exchanges, newest first.
func (d *Driver) List(ctx context.Context, limit int) ([]*history.Exchange, error) {
	query := `SELECT ` + selectColumns + ` FROM exchanges ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.DB.QueryContext(ctx, d.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	result := []*history.Exchange{}
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchanges: %w", err)
	}

	return result, nil
}

// Clear deletes every exchange.
func (d *Driver) Clear(ctx context.Context) (int64, error) {
	res, err := d.DB.ExecContext(ctx, `DELETE FROM exchanges`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear exchanges: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

// bind rewrites "?" placeholders for the driver's dialect. Queries in this
// package never contain literal question marks.
func (d *Driver) bind(query string) string {
	if d.placeholder != Dollar {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(s scanner) (*history.Exchange, error) {
	var (
		ex                 history.Exchange
		sources, suggested string
		createdAt          int64
	)

	err := s.Scan(&ex.ID, &ex.SessionID, &ex.Question, &ex.Answer, &ex.Language, &sources, &suggested, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan exchange: %w", err)
	}

	ex.Sources = []chat.Source{}
	if err := json.Unmarshal([]byte(sources), &ex.Sources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
	}
	ex.SuggestedQuestions = []string{}
	if err := json.Unmarshal([]byte(suggested), &ex.SuggestedQuestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggested questions: %w", err)
	}
	ex.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &ex, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
