package aichat

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
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1"
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 25 * time.Second

	// FallbackReply is returned when the upstream answers with an
	// unexpected shape. Guests get a polite apology instead of an error.
	FallbackReply = "Maaf, saya tidak dapat menjawab saat ini. Silakan coba lagi nanti."
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Prompts    *PromptSet
}

// NewClient builds a client with the embedded prompts.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	prompts, err := DefaultPrompts()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		Timeout: timeout,
		Prompts: prompts,
	}, nil
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopK            int     `json:"topK"`
		TopP            float64 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
	SafetySettings []safetySetting `json:"safetySettings"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// Reply sends the guest message framed by the language's system prompt
// and returns the model's text reply. A response with an unexpected
// shape degrades to FallbackReply rather than an error.
func (c *Client) Reply(ctx context.Context, message, language string) (string, error) {
	if c == nil || strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("chat client is not configured")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message is required")
	}
	if c.Prompts == nil {
		return "", errors.New("chat prompts are not loaded")
	}
	prompt := c.Prompts.ForLanguage(language)

	reqBody := generateRequest{
		Contents: []generateContent{
			{Role: "user", Parts: []generatePart{{Text: prompt.System}}},
			{Role: "model", Parts: []generatePart{{Text: prompt.Priming}}},
			{Role: "user", Parts: []generatePart{{Text: message}}},
		},
		SafetySettings: defaultSafetySettings,
	}
	reqBody.GenerationConfig.Temperature = 0.2
	reqBody.GenerationConfig.TopK = 40
	reqBody.GenerationConfig.TopP = 0.95
	reqBody.GenerationConfig.MaxOutputTokens = 800

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.baseURL(), "/"), c.model(), url.QueryEscape(c.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.timeout()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return FallbackReply, nil
	}
	if len(parsed.Candidates) == 0 ||
		len(parsed.Candidates[0].Content.Parts) == 0 ||
		strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text) == "" {
		return FallbackReply, nil
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) model() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModel
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}
