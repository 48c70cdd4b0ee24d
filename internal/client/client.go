// Package client talks to the demystifier API: one streaming chat call that
// delivers reply text fragment by fragment, and one analysis call that
// returns a validated AnalysisResult.
package client

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

	"demystifier-backend/internal/model"
)

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL of the server, e.g. http://127.0.0.1:8080
	BaseURL string

	// Path of the action endpoint (default: /api/gemini)
	Path string

	// Timeout for analysis calls (default: 2m). Chat streams are bounded only
	// by the caller's context.
	Timeout time.Duration

	// ReadBufferSize is the largest chunk read from a chat stream at once
	// (default: 4096)
	ReadBufferSize int

	// HTTPClient overrides the transport. Its Timeout should be zero so
	// long streams are not cut off.
	HTTPClient *http.Client
}

func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://127.0.0.1:8080",
		Path:           "/api/gemini",
		Timeout:        2 * time.Minute,
		ReadBufferSize: 4096,
	}
}

type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig fills zero values from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = defaults.ReadBufferSize
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{config: config, httpClient: httpClient}
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.config.BaseURL, "/") + c.config.Path
}

// StreamChat sends history to the chat action and calls onFragment with each
// decoded piece of the reply, in arrival order. Empty pieces are skipped.
// Fragments already delivered are not retracted when the stream fails.
func (c *Client) StreamChat(ctx context.Context, history []model.ChatMessage, groundingContext string, chatType model.ChatType, onFragment func(string)) error {
	if len(history) == 0 {
		return invalidInput("history must contain at least one message")
	}
	if !chatType.Valid() {
		return invalidInput(fmt.Sprintf("unknown chat type %q", chatType))
	}

	body, err := newEnvelope(model.ActionChat, model.ChatPayload{
		History:  history,
		Context:  groundingContext,
		ChatType: chatType,
	})
	if err != nil {
		return invalidInput(err.Error())
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := newStreamDecoder()
	buf := make([]byte, c.config.ReadBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			text, decErr := dec.Decode(buf[:n], false)
			if text != "" {
				onFragment(text)
			}
			if decErr != nil {
				return transportError("decode chat stream", 0, decErr)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return transportError("read chat stream", 0, readErr)
		}
	}

	if tail, _ := dec.Decode(nil, true); tail != "" {
		onFragment(tail)
	}
	return nil
}

// AnalyzeDocument requests an analysis of text or file. At least one must be
// supplied; otherwise ErrInvalidInput is returned and nothing is sent.
func (c *Client) AnalyzeDocument(ctx context.Context, text string, file *model.FileData) (*model.AnalysisResult, error) {
	payload := model.AnalyzePayload{Text: text, File: file}
	if !payload.HasInput() {
		return nil, invalidInput("either text or a file must be provided")
	}

	body, err := newEnvelope(model.ActionAnalyze, payload)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError("read analysis response", 0, err)
	}

	result, err := model.ParseAnalysisResult(data)
	if err != nil {
		return nil, malformedResponse(err)
	}
	return result, nil
}

// post issues the request and turns connection failures, non-2xx statuses
// and missing bodies into transport errors.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, transportError("build request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError("connect", 0, err)
	}
	if resp.Body == nil {
		return nil, transportError("response has no body", resp.StatusCode, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, transportError("API request failed", resp.StatusCode, serverError(resp.Body))
	}
	return resp, nil
}

// serverError extracts the {"error": ...} message of a failed call, if any.
func serverError(r io.Reader) error {
	var body model.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || body.Error == "" {
		return nil
	}
	return errors.New(body.Error)
}

func newEnvelope(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}
	return json.Marshal(model.Envelope{Action: action, Payload: raw})
}
