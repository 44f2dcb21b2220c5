// Package merge talks to the local media helper: the ffmpeg merge endpoint
// and the yt-dlp download endpoints that live beside it.
package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thirdcoast.systems/browserutility/pkg/utils/format"
)

const DefaultURL = "http://127.0.0.1:8765/merge"

// StatusError is returned when the merge endpoint answers non-2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Merge service failed (%d): %s", e.StatusCode, format.Head(e.Body, 200))
}

type Request struct {
	VideoPath  string `json:"video_path"`
	AudioPath  string `json:"audio_path"`
	OutputPath string `json:"output_path"`
}

// Result is the JSON envelope every helper endpoint answers with.
type Result struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	OutputDir  string `json:"output_dir,omitempty"`
}

type Client struct {
	mergeURL string
	http     *http.Client
}

// NewClient targets mergeURL; helper endpoints are resolved against its origin.
func NewClient(mergeURL string) *Client {
	mergeURL = strings.TrimSpace(mergeURL)
	if mergeURL == "" {
		mergeURL = DefaultURL
	}
	return &Client{
		mergeURL: mergeURL,
		http: &http.Client{
			// yt-dlp runs synchronously inside the helper request
			Timeout: 30 * time.Minute,
		},
	}
}

// Merge asks the helper to mux the two tracks. A relative output path is
// resolved by the helper against the video's directory.
func (c *Client) Merge(ctx context.Context, req Request) (*Result, error) {
	resp, err := c.post(ctx, c.mergeURL, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode merge response: %w", err)
	}
	return &out, nil
}

// HelperURL swaps the merge URL's path for endpoint, keeping scheme and host.
func HelperURL(mergeURL, endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(mergeURL))
	if err != nil {
		return "", fmt.Errorf("parse merge service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("merge service url %q is not absolute", mergeURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/" + strings.TrimLeft(endpoint, "/")}).String(), nil
}

type YouTubeRequest struct {
	VideoURL  string `json:"video_url"`
	TitleHint string `json:"title_hint,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

type ManifestRequest struct {
	ManifestURL string `json:"manifest_url"`
	PageURL     string `json:"page_url,omitempty"`
	TitleHint   string `json:"title_hint,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`
}

type PageRequest struct {
	PageURL   string `json:"page_url"`
	TitleHint string `json:"title_hint,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

func (c *Client) DownloadYouTube(ctx context.Context, req YouTubeRequest) (*Result, error) {
	return c.helper(ctx, "/download_youtube", req)
}

func (c *Client) DownloadManifest(ctx context.Context, req ManifestRequest) (*Result, error) {
	return c.helper(ctx, "/download_manifest", req)
}

func (c *Client) DownloadPage(ctx context.Context, req PageRequest) (*Result, error) {
	return c.helper(ctx, "/download_page", req)
}

// helper posts to a yt-dlp endpoint. Error answers still carry a JSON
// envelope, so a non-2xx status surfaces the helper's own message.
func (c *Client) helper(ctx context.Context, endpoint string, payload any) (*Result, error) {
	target, err := HelperURL(c.mergeURL, endpoint)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, target, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read helper response: %w", err)
	}

	var out Result
	if jsonErr := json.Unmarshal(body, &out); jsonErr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("helper %s failed (%d): %s", endpoint, resp.StatusCode, format.Head(string(body), 200))
		}
		return nil, fmt.Errorf("decode helper response: %w", jsonErr)
	}
	if !out.OK || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = fmt.Sprintf("helper %s failed (%d)", endpoint, resp.StatusCode)
		}
		return &out, errors.New(msg)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, target string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", target, err)
	}
	return resp, nil
}
