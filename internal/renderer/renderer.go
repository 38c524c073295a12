// Package renderer submits compositions to the external render service.
// Completion arrives later on the callback endpoint, correlated only by the
// job id returned here.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dream-anchor/creatoros-reels/internal/composer"
)

const requestTimeout = 30 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Submit posts the composition and returns the external job id from the
// synchronous ack. A 2xx reply without a job id is treated as a failed
// submission, since nothing could ever correlate its callback.
func (c *Client) Submit(ctx context.Context, comp composer.Composition) (string, error) {
	body, err := json.Marshal(comp)
	if err != nil {
		return "", fmt.Errorf("render submit: marshal composition: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/v1/renders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("render submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("render submit: status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}

	var ack struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("render submit: decode ack: %w", err)
	}
	if strings.TrimSpace(ack.ID) == "" {
		return "", fmt.Errorf("render submit: service returned no job id")
	}
	return ack.ID, nil
}
