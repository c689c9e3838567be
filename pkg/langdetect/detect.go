// Package langdetect guesses the dominant languages of a message sample via
// an OpenAI-compatible chat completion endpoint. It is strictly best-effort:
// any failure yields ["unknown"] and never blocks the pipeline.
package langdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const systemPrompt = "Identify the languages of the following chat messages. " +
	"Reply with only the language names in English, comma-separated, most common first."

// Detector classifies the language of text samples.
type Detector struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the detector. An empty BaseURL disables
// detection entirely (Detect returns ["unknown"]).
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New creates a new language detector.
func New(cfg Config) *Detector {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Detector{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Detect returns the language names detected in the sample, lowercased.
// Returns ["unknown"] on missing configuration or any provider failure.
func (d *Detector) Detect(ctx context.Context, sample string) []string {
	if d.baseURL == "" || strings.TrimSpace(sample) == "" {
		return []string{"unknown"}
	}

	content, err := d.classify(ctx, sample)
	if err != nil || content == "" {
		return []string{"unknown"}
	}

	var languages []string
	for _, part := range strings.Split(content, ",") {
		lang := strings.ToLower(strings.Trim(part, " .\n"))
		if lang != "" {
			languages = append(languages, lang)
		}
	}
	if len(languages) == 0 {
		return []string{"unknown"}
	}
	return languages
}

func (d *Detector) classify(ctx context.Context, sample string) (string, error) {
	jsonBody, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: sample},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classification API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String()), nil
}
