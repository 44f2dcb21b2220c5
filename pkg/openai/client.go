// Package openai is a minimal client for the Responses API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"thirdcoast.systems/browserutility/pkg/utils/format"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
)

var ErrMissingAPIKey = errors.New("Missing OpenAI API key. Add it in extension settings.")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("OpenAI request failed (%d): %s", e.StatusCode, format.Head(e.Body, 200))
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type InputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type InputMessage struct {
	Role    string         `json:"role"`
	Content []InputContent `json:"content"`
}

type CreateResponseRequest struct {
	Model string         `json:"model"`
	Input []InputMessage `json:"input"`
}

// UserText builds a request with a single user message.
func UserText(model, text string) CreateResponseRequest {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return CreateResponseRequest{
		Model: model,
		Input: []InputMessage{{
			Role:    "user",
			Content: []InputContent{{Type: "input_text", Text: text}},
		}},
	}
}

// CreateResponse posts req to /v1/responses and decodes the reply.
func (c *Client) CreateResponse(ctx context.Context, req CreateResponseRequest) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		details, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(details)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	return ParseResponse(raw)
}

// Draft sends text as a single user message and returns the reply text.
func (c *Client) Draft(ctx context.Context, model, text string) (string, error) {
	resp, err := c.CreateResponse(ctx, UserText(model, text))
	if err != nil {
		return "", err
	}
	draft := resp.Text()
	if draft == "" {
		status := ""
		if resp.Status != "" {
			status = fmt.Sprintf(" Status: %s.", resp.Status)
		}
		return "", fmt.Errorf("OpenAI response did not contain draft text.%s", status)
	}
	return draft, nil
}
