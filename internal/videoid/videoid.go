// Package videoid classifies page URLs by site.
package videoid

import (
	"errors"
	"net/url"
	"strings"
)

// IsYouTubeWatchURL reports whether raw points at a YouTube watch page
// (a youtube.com host whose path starts with /watch).
func IsYouTubeWatchURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return hostWithin(u.Host, "youtube.com") && strings.HasPrefix(u.Path, "/watch")
}

// IsXURL reports whether raw is on x.com (or one of its subdomains).
func IsXURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return hostWithin(u.Host, "x.com")
}

func hostWithin(hostport, domain string) bool {
	h := normalizeHost(hostport)
	return h == domain || strings.HasSuffix(h, "."+domain)
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil {
			if parsed.Hostname() != "" {
				h = parsed.Hostname()
			}
		}
	}
	h = strings.TrimSuffix(h, ".")
	return h
}

// ExtractYouTubeVideoID reads the video id from watch, short, embed, live
// and youtu.be URLs.
func ExtractYouTubeVideoID(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", errors.New("empty url")
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	host := normalizeHost(u.Host)

	if host == "youtu.be" {
		if id := firstPathSegment(u.Path); id != "" {
			return id, nil
		}
		return "", errors.New("not a youtube url or video id not found")
	}

	if hostWithin(host, "youtube.com") {
		if q := u.Query().Get("v"); q != "" {
			return q, nil
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := firstPathSegment(strings.TrimPrefix(u.Path, prefix)); id != "" {
					return id, nil
				}
			}
		}
	}

	return "", errors.New("not a youtube url or video id not found")
}

func firstPathSegment(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ""
	}
	seg, _, _ := strings.Cut(p, "/")
	return strings.TrimSpace(seg)
}
