// Package youtube reads YouTube's page-owned player response and recovers
// downloadable stream URLs from it.
//
// This is best-effort scraping of an undocumented structure. Formats whose
// signature is encrypted are dropped rather than descrambled.
package youtube

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrPlayerResponseNotFound is returned when a page carries no player response.
var ErrPlayerResponseNotFound = errors.New("youtube: ytInitialPlayerResponse not found in page")

// PlayerResponse models the parts of ytInitialPlayerResponse we read.
type PlayerResponse struct {
	VideoDetails      VideoDetails      `json:"videoDetails"`
	StreamingData     *StreamingData    `json:"streamingData"`
	PlayabilityStatus PlayabilityStatus `json:"playabilityStatus"`
}

type VideoDetails struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
	Author  string `json:"author"`
}

type PlayabilityStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// StreamingData holds the progressive (Formats) and adaptive format lists.
type StreamingData struct {
	Formats         []Format `json:"formats"`
	AdaptiveFormats []Format `json:"adaptiveFormats"`
	HLSManifestURL  string   `json:"hlsManifestUrl"`
	DashManifestURL string   `json:"dashManifestUrl"`
}

// Format is a single entry of a streaming format list. Exactly one of URL,
// SignatureCipher or Cipher is normally populated.
type Format struct {
	Itag            int     `json:"itag"`
	MimeType        string  `json:"mimeType"`
	Bitrate         Bitrate `json:"bitrate"`
	QualityLabel    string  `json:"qualityLabel,omitempty"`
	ContentLength   string  `json:"contentLength,omitempty"`
	URL             string  `json:"url,omitempty"`
	SignatureCipher string  `json:"signatureCipher,omitempty"`
	Cipher          string  `json:"cipher,omitempty"`
}

// Bitrate tolerates numbers, numeric strings, null and garbage. Anything that
// is not a number decodes as zero.
type Bitrate float64

func (b *Bitrate) UnmarshalJSON(data []byte) error {
	*b = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*b = Bitrate(f)
		}
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err == nil {
			*b = Bitrate(f)
		}
	}
	return nil
}

// ParsePlayerResponse decodes a player response payload. A JSON null yields
// (nil, nil) so callers can treat "page had nothing" uniformly.
func ParsePlayerResponse(raw []byte) (*PlayerResponse, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var pr PlayerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

var playerResponseMarkers = []string{
	"var ytInitialPlayerResponse = ",
	"ytInitialPlayerResponse = ",
	"window[\"ytInitialPlayerResponse\"] = ",
}

// ExtractPlayerResponseJSON finds the ytInitialPlayerResponse object literal in
// raw page HTML and returns its JSON text.
func ExtractPlayerResponseJSON(html string) ([]byte, error) {
	for _, marker := range playerResponseMarkers {
		idx := strings.Index(html, marker)
		if idx < 0 {
			continue
		}
		rest := html[idx+len(marker):]
		start := strings.IndexByte(rest, '{')
		if start < 0 || strings.TrimSpace(rest[:start]) != "" {
			continue
		}
		if obj, ok := matchObject(rest[start:]); ok {
			return []byte(obj), nil
		}
	}
	return nil, ErrPlayerResponseNotFound
}

// matchObject returns the balanced {...} prefix of s, honoring JSON strings.
func matchObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
