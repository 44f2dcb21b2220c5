package youtube

import (
	"sort"
	"strings"
)

// DefaultTitle names downloads when neither the player response nor the page has a title.
const DefaultTitle = "youtube-video"

// StreamInfo is the outcome of stream discovery. Either CombinedURL is set,
// or both VideoOnlyURL and AudioOnlyURL are.
type StreamInfo struct {
	CombinedURL  string `json:"combinedUrl,omitempty"`
	VideoOnlyURL string `json:"videoOnlyUrl,omitempty"`
	AudioOnlyURL string `json:"audioOnlyUrl,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
	Title        string `json:"title"`
}

// HasPair reports whether both split tracks are available.
func (s StreamInfo) HasPair() bool {
	return s.VideoOnlyURL != "" && s.AudioOnlyURL != ""
}

// ResolvedFormat pairs a format with its usable URL.
type ResolvedFormat struct {
	Format Format
	URL    string
}

// Resolve keeps the formats that yield a URL, in input order.
func Resolve(formats []Format) []ResolvedFormat {
	out := make([]ResolvedFormat, 0, len(formats))
	for _, f := range formats {
		if u, ok := FormatURL(f); ok {
			out = append(out, ResolvedFormat{Format: f, URL: u})
		}
	}
	return out
}

// SortByBitrateDescending returns a copy sorted by descending bitrate. Ties keep
// their input order.
func SortByBitrateDescending(formats []ResolvedFormat) []ResolvedFormat {
	sorted := append([]ResolvedFormat(nil), formats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Format.Bitrate > sorted[j].Format.Bitrate
	})
	return sorted
}

// FilterMime keeps formats whose MIME type starts with prefix (case-insensitive).
func FilterMime(formats []Format, prefix string) []Format {
	prefix = strings.ToLower(prefix)
	var out []Format
	for _, f := range formats {
		if strings.HasPrefix(strings.ToLower(f.MimeType), prefix) {
			out = append(out, f)
		}
	}
	return out
}

// SelectStreams picks the best progressive URL, or failing that the best
// video-only/audio-only pair. It returns ok=false when neither is available.
// pageTitle is used when the player response carries no title.
func SelectStreams(pr *PlayerResponse, pageTitle string) (StreamInfo, bool) {
	if pr == nil || pr.StreamingData == nil {
		return StreamInfo{}, false
	}
	sd := pr.StreamingData

	progressive := SortByBitrateDescending(Resolve(sd.Formats))
	video := SortByBitrateDescending(Resolve(FilterMime(sd.AdaptiveFormats, "video/")))
	audio := SortByBitrateDescending(Resolve(FilterMime(sd.AdaptiveFormats, "audio/")))

	info := StreamInfo{
		VideoID: pr.VideoDetails.VideoID,
		Title:   firstNonEmpty(pr.VideoDetails.Title, pageTitle, DefaultTitle),
	}
	if len(progressive) > 0 {
		info.CombinedURL = progressive[0].URL
	}
	if len(video) > 0 {
		info.VideoOnlyURL = video[0].URL
	}
	if len(audio) > 0 {
		info.AudioOnlyURL = audio[0].URL
	}

	if info.CombinedURL == "" && !info.HasPair() {
		return StreamInfo{}, false
	}
	return info, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
