// package settings_api exposes the persisted extension settings.
package settings_api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/common"
	"thirdcoast.systems/browserutility/internal/settings"
	"thirdcoast.systems/browserutility/pkg/utils/markdown"
)

type Store interface {
	settings.Source
	Save(ctx context.Context, s settings.Settings) error
}

type settingsResponse struct {
	OK       bool              `json:"ok"`
	Settings settings.Settings `json:"settings"`
}

// HandleGet returns the current settings with the API key masked.
func HandleGet(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := store.Load(c.Request().Context())
		if err != nil {
			slog.Error("failed to load settings", "error", err)
			return common.Fail(c, http.StatusInternalServerError, "failed to load settings")
		}
		return c.JSON(http.StatusOK, settingsResponse{OK: true, Settings: s.Redacted()})
	}
}

// HandlePut merges the fields present in the body onto the stored settings.
// Sending back the masked key leaves the stored key untouched.
func HandlePut(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		current, err := store.Load(ctx)
		if err != nil {
			slog.Error("failed to load settings", "error", err)
			return common.Fail(c, http.StatusInternalServerError, "failed to load settings")
		}

		next := current
		if err := common.DecodeJSON(c, &next); err != nil {
			return common.InvalidJSON(c, err)
		}
		if next.OpenAIAPIKey != "" && next.OpenAIAPIKey == current.Redacted().OpenAIAPIKey {
			next.OpenAIAPIKey = current.OpenAIAPIKey
		}
		next = next.Normalized()

		if err := store.Save(ctx, next); err != nil {
			slog.Error("failed to save settings", "error", err)
			return common.Fail(c, http.StatusInternalServerError, "failed to save settings")
		}

		slog.Info("settings updated", "model", next.OpenAIModel, "auto_merge", next.AutoMergeYouTubeStreams)
		return c.JSON(http.StatusOK, settingsResponse{OK: true, Settings: next.Redacted()})
	}
}

// HandleGuidelinesPreview renders the reply guidelines as sanitized HTML.
// A "markdown" query parameter previews unsaved text instead.
func HandleGuidelinesPreview(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		source, ok := c.QueryParams()["markdown"]
		var text string
		if ok && len(source) > 0 {
			text = source[0]
		} else {
			s, err := store.Load(c.Request().Context())
			if err != nil {
				return common.Fail(c, http.StatusInternalServerError, "failed to load settings")
			}
			text = s.ReplyGuidelinesMarkdown
		}

		md := markdown.New(text)
		if md.IsBlank() {
			return c.HTML(http.StatusOK, "")
		}
		return c.HTML(http.StatusOK, string(md.Render()))
	}
}
