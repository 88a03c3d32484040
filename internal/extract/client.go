// Package extract wraps the multimodal model call that turns uploaded
// documents into structured JSON.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/policytrack/renewal-backend/internal/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-sonnet-4-20250514"
	maxRetries       = 3
	initDelay        = 2 * time.Second
)

// Client calls the Anthropic Messages API with binary payloads.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates an extraction client. An empty model selects the default.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		model:   model,
		client:  &http.Client{Timeout: 180 * time.Second},
	}
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *blockSource `json:"source,omitempty"`
}

type blockSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// ExtractPremiumList reads a premium-due list PDF and returns one element per
// source row. A malformed (non-JSON) model response is a fatal error.
func (c *Client) ExtractPremiumList(ctx context.Context, pdf []byte) ([]models.ExtractedPolicy, error) {
	text, err := c.generate(ctx, pdf, "application/pdf", "document", premiumListInstruction)
	if err != nil {
		return nil, err
	}
	var rows []models.ExtractedPolicy
	if err := unmarshalResponse(text, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExtractReceipt reads a payment receipt photo. Fields the model cannot read
// come back nil per the instruction contract.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*models.ReceiptExtraction, error) {
	text, err := c.generate(ctx, image, mimeType, "image", receiptInstruction)
	if err != nil {
		return nil, err
	}
	var out models.ReceiptExtraction
	if err := unmarshalResponse(text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// generate sends one binary payload plus instruction and returns the raw
// response text. Retries on rate limits and server errors with backoff.
func (c *Client) generate(ctx context.Context, payload []byte, mimeType, blockType, instruction string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	req := apiRequest{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []apiMessage{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: blockType,
					Source: &blockSource{
						Type:      "base64",
						MediaType: mimeType,
						Data:      base64.StdEncoding.EncodeToString(payload),
					},
				},
				{Type: "text", Text: instruction},
			},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * initDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("model API error (%d): %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var apiResp apiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(apiResp.Content) == 0 {
			return "", fmt.Errorf("empty response content")
		}
		return apiResp.Content[0].Text, nil
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}
