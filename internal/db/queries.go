package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

// ListSettings returns every stored key/value pair.
func (db *DatabaseConnection) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// PutSettings upserts values in one transaction.
func (db *DatabaseConnection) PutSettings(ctx context.Context, values map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.Rebind(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("prepare settings upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, k, v, now); err != nil {
			return fmt.Errorf("upsert setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}

type PairToken struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	TokenHash  string     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

func (db *DatabaseConnection) InsertPairToken(ctx context.Context, t PairToken) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO pair_tokens (id, label, token_hash, created_at) VALUES (?, ?, ?, ?)`),
		t.ID, t.Label, t.TokenHash, t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert pair token: %w", err)
	}
	return nil
}

func (db *DatabaseConnection) GetPairToken(ctx context.Context, id string) (*PairToken, error) {
	row := db.QueryRowContext(ctx, db.Rebind(`
		SELECT id, label, token_hash, created_at, last_used_at FROM pair_tokens WHERE id = ?`), id)
	t, err := scanPairToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (db *DatabaseConnection) ListPairTokens(ctx context.Context) ([]PairToken, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, label, token_hash, created_at, last_used_at FROM pair_tokens ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list pair tokens: %w", err)
	}
	defer rows.Close()

	var out []PairToken
	for rows.Next() {
		t, err := scanPairToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (db *DatabaseConnection) TouchPairToken(ctx context.Context, id string, at time.Time) error {
	_, err := db.ExecContext(ctx, db.Rebind(`UPDATE pair_tokens SET last_used_at = ? WHERE id = ?`), at.Unix(), id)
	return err
}

// DeletePairToken reports ErrNotFound when no row matched.
func (db *DatabaseConnection) DeletePairToken(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM pair_tokens WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete pair token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPairToken(row rowScanner) (*PairToken, error) {
	var (
		t        PairToken
		created  int64
		lastUsed sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Label, &t.TokenHash, &created, &lastUsed); err != nil {
		return nil, err
	}
	t.CreatedAt = time.Unix(created, 0).UTC()
	t.LastUsedAt = NilTimePtr(lastUsed)
	return &t, nil
}
