package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	stylizeModel = "black-forest-labs/flux-1.1-pro-ultra"
	videoModel   = "luma/ray-flash-2-720p"

	stylizePrompt = "Transform this into a friendly 1980s anime-style illustration. " +
		"Use soft pastel colors, hand-drawn textures, and gentle cel shading. " +
		"Apply subtle linework and natural lighting with a warm, nostalgic glow. " +
		"Emphasize expressive, kind-eyed characters, fluid poses, and detailed, " +
		"whimsical backgrounds. The overall aesthetic should feel cozy, cinematic, " +
		"and storybook-like."
)

// Prediction is the inference API's job handle. Terminal statuses are
// "succeeded", "failed" and "canceled".
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

func (p *Prediction) Terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

type Client struct {
	apiToken   string
	httpClient *http.Client
	baseURL    string
}

func NewClient(apiToken, baseURL string) *Client {
	return &Client{
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
	}
}

// CreatePrediction starts an inference job against the named model and
// returns its handle without waiting for completion.
func (c *Client) CreatePrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	payload := map[string]any{"input": input}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replicate API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &prediction, nil
}

// GetPrediction fetches the current state of a job.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replicate API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &prediction, nil
}

// WaitForPrediction polls a job until it reaches a terminal status or
// the context ends.
func (c *Client) WaitForPrediction(ctx context.Context, prediction *Prediction) (*Prediction, error) {
	current := prediction
	for !current.Terminal() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}

		next, err := c.GetPrediction(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
