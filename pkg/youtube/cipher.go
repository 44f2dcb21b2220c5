package youtube

import (
	"net/url"
	"strings"
)

const defaultSignatureParam = "signature"

// ParseSignatureCipher resolves a signatureCipher query string into a media URL.
//
// The cipher carries the target URL in "url". When an encrypted signature ("s")
// is present the format is unresolvable and ok is false. A plaintext signature
// ("sig" or "signature") is copied into the target URL under the parameter
// named by "sp" (default "signature") unless the URL already carries it.
func ParseSignatureCipher(cipher string) (string, bool) {
	if strings.TrimSpace(cipher) == "" {
		return "", false
	}

	// ParseQuery keeps every well-formed pair even when it reports an error.
	params, _ := url.ParseQuery(cipher)

	rawURL := params.Get("url")
	if rawURL == "" {
		return "", false
	}
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return "", false
	}

	if params.Get("s") != "" {
		return "", false
	}

	sp := params.Get("sp")
	if sp == "" {
		sp = defaultSignatureParam
	}
	sig := params.Get("sig")
	if sig == "" {
		sig = params.Get("signature")
	}
	if sig != "" && target.Query().Get(sp) == "" {
		pair := url.QueryEscape(sp) + "=" + url.QueryEscape(sig)
		if target.RawQuery == "" {
			target.RawQuery = pair
		} else {
			target.RawQuery += "&" + pair
		}
	}

	return target.String(), true
}

// FormatURL returns a usable URL for f: the direct url field, else the
// decoded signatureCipher (or legacy cipher).
func FormatURL(f Format) (string, bool) {
	if f.URL != "" {
		return f.URL, true
	}
	if f.SignatureCipher != "" {
		return ParseSignatureCipher(f.SignatureCipher)
	}
	if f.Cipher != "" {
		return ParseSignatureCipher(f.Cipher)
	}
	return "", false
}
