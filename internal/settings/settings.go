// Package settings holds the user-editable options that every action reads
// at its start, and persists them in the settings table.
package settings

import (
	"context"
	"strings"

	"thirdcoast.systems/browserutility/internal/merge"
	"thirdcoast.systems/browserutility/pkg/openai"
)

// Storage keys.
const (
	KeyOpenAIAPIKey            = "openaiApiKey"
	KeyOpenAIModel             = "openaiModel"
	KeyReplyGuidelinesMarkdown = "replyGuidelinesMarkdown"
	KeyAutoMergeYouTubeStreams = "autoMergeYouTubeStreams"
	KeyMergeServiceURL         = "mergeServiceUrl"
)

type Settings struct {
	OpenAIAPIKey            string `json:"openaiApiKey"`
	OpenAIModel             string `json:"openaiModel"`
	ReplyGuidelinesMarkdown string `json:"replyGuidelinesMarkdown"`
	AutoMergeYouTubeStreams bool   `json:"autoMergeYouTubeStreams"`
	MergeServiceURL         string `json:"mergeServiceUrl"`
}

// Defaults is what an empty store loads as.
func Defaults() Settings {
	return Settings{
		OpenAIModel:     openai.DefaultModel,
		MergeServiceURL: merge.DefaultURL,
	}
}

// Normalized fills blank values with defaults and trims the merge URL.
func (s Settings) Normalized() Settings {
	if strings.TrimSpace(s.OpenAIModel) == "" {
		s.OpenAIModel = openai.DefaultModel
	}
	s.MergeServiceURL = strings.TrimSpace(s.MergeServiceURL)
	if s.MergeServiceURL == "" {
		s.MergeServiceURL = merge.DefaultURL
	}
	return s
}

// Redacted masks the API key for display.
func (s Settings) Redacted() Settings {
	if k := s.OpenAIAPIKey; k != "" {
		if len(k) > 8 {
			s.OpenAIAPIKey = k[:3] + strings.Repeat("*", 6) + k[len(k)-2:]
		} else {
			s.OpenAIAPIKey = strings.Repeat("*", len(k))
		}
	}
	return s
}

// Source is anything that can produce current settings.
type Source interface {
	Load(ctx context.Context) (Settings, error)
}

// Static is a fixed Source.
type Static Settings

func (s Static) Load(context.Context) (Settings, error) {
	return Settings(s).Normalized(), nil
}
