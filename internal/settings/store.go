package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"thirdcoast.systems/browserutility/internal/db"
	"thirdcoast.systems/browserutility/pkg/encryption"
)

// Store persists Settings as key/value rows. When an encryption manager is
// set the API key is sealed at rest.
type Store struct {
	dbc *db.DatabaseConnection
	enc *encryption.Manager
}

func NewStore(dbc *db.DatabaseConnection, enc *encryption.Manager) *Store {
	return &Store{dbc: dbc, enc: enc}
}

func (s *Store) Load(ctx context.Context) (Settings, error) {
	values, err := s.dbc.ListSettings(ctx)
	if err != nil {
		return Settings{}, err
	}

	out := Defaults()
	if v, ok := values[KeyOpenAIModel]; ok {
		out.OpenAIModel = v
	}
	if v, ok := values[KeyReplyGuidelinesMarkdown]; ok {
		out.ReplyGuidelinesMarkdown = v
	}
	if v, ok := values[KeyMergeServiceURL]; ok {
		out.MergeServiceURL = v
	}
	if v, ok := values[KeyAutoMergeYouTubeStreams]; ok {
		out.AutoMergeYouTubeStreams, _ = strconv.ParseBool(v)
	}
	if v, ok := values[KeyOpenAIAPIKey]; ok {
		key, err := s.openKey(v)
		if err != nil {
			return Settings{}, err
		}
		out.OpenAIAPIKey = key
	}

	return out.Normalized(), nil
}

func (s *Store) Save(ctx context.Context, in Settings) error {
	key, err := s.sealKey(in.OpenAIAPIKey)
	if err != nil {
		return err
	}

	err = s.dbc.PutSettings(ctx, map[string]string{
		KeyOpenAIAPIKey:            key,
		KeyOpenAIModel:             in.OpenAIModel,
		KeyReplyGuidelinesMarkdown: in.ReplyGuidelinesMarkdown,
		KeyAutoMergeYouTubeStreams: strconv.FormatBool(in.AutoMergeYouTubeStreams),
		KeyMergeServiceURL:         in.MergeServiceURL,
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	slog.Info("settings saved", "model", in.OpenAIModel, "auto_merge", in.AutoMergeYouTubeStreams, "sealed", s.enc != nil)
	return nil
}

func (s *Store) sealKey(key string) (string, error) {
	if key == "" || s.enc == nil {
		return key, nil
	}
	sealed, err := s.enc.SealString(key)
	if err != nil {
		return "", fmt.Errorf("seal api key: %w", err)
	}
	return sealed, nil
}

func (s *Store) openKey(stored string) (string, error) {
	if !encryption.IsSealed(stored) {
		return stored, nil
	}
	if s.enc == nil {
		return "", fmt.Errorf("stored API key is encrypted but no ENCRYPTION_KEY is configured")
	}
	key, err := s.enc.OpenString(stored)
	if err != nil {
		return "", fmt.Errorf("open api key: %w", err)
	}
	return key, nil
}
