// Package pairing issues bearer tokens that let a browser extension call the
// local helper daemon, and verifies them on each request.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"thirdcoast.systems/browserutility/internal/db"
	"thirdcoast.systems/browserutility/pkg/utils/tokens"
)

var ErrInvalidToken = errors.New("invalid pairing token")

type Service struct {
	dbc *db.DatabaseConnection
	now func() time.Time
}

func NewService(dbc *db.DatabaseConnection) *Service {
	return &Service{dbc: dbc, now: time.Now}
}

// Issue creates a token labelled label. The returned string is the only
// time the secret is visible.
func (s *Service) Issue(ctx context.Context, label string) (string, db.PairToken, error) {
	tok, err := tokens.New()
	if err != nil {
		return "", db.PairToken{}, err
	}
	hash, err := tokens.HashSecret(tok)
	if err != nil {
		return "", db.PairToken{}, fmt.Errorf("hash token: %w", err)
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = "extension"
	}
	row := db.PairToken{
		ID:        tok.ID,
		Label:     label,
		TokenHash: string(hash),
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	if err := s.dbc.InsertPairToken(ctx, row); err != nil {
		return "", db.PairToken{}, err
	}

	slog.Info("pairing token issued", "id", row.ID, "label", row.Label)
	return tok.String(), row, nil
}

// Verify checks a bearer value and records its use.
func (s *Service) Verify(ctx context.Context, raw string) (*db.PairToken, error) {
	tok, err := tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}

	row, err := s.dbc.GetPairToken(ctx, tok.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	ok, err := tokens.Hash(row.TokenHash).Matches(tok)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}

	if err := s.dbc.TouchPairToken(ctx, row.ID, s.now()); err != nil {
		slog.Warn("failed to record pairing token use", "id", row.ID, "error", err)
	}
	return row, nil
}

func (s *Service) List(ctx context.Context) ([]db.PairToken, error) {
	return s.dbc.ListPairTokens(ctx)
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.dbc.DeletePairToken(ctx, id); err != nil {
		return err
	}
	slog.Info("pairing token revoked", "id", id)
	return nil
}
