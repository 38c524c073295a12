// Package transcribe sends extracted media to the speech-to-text service and
// normalizes the reply into the word-level transcript the pipeline stores.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dream-anchor/creatoros-reels/models"
)

const requestTimeout = 5 * time.Minute

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	if model == "" {
		model = "whisper-1"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// wire shape of the verbose transcription response.
type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe uploads the media bytes and returns the normalized transcript.
// Words with empty text or non-positive duration are dropped during
// normalization; a reply with neither text nor words is an error.
func (c *Client) Transcribe(ctx context.Context, media []byte, filename string) (*models.Transcript, error) {
	if len(media) == 0 {
		return nil, fmt.Errorf("transcribe: empty media")
	}
	if filename == "" {
		filename = "audio.mp4"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(media); err != nil {
		return nil, err
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return nil, err
	}
	if err := mw.WriteField("timestamp_granularities[]", "word"); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcribe: status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}

	var raw transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}

	out := &models.Transcript{
		Text:     strings.TrimSpace(raw.Text),
		Language: strings.ToLower(strings.TrimSpace(raw.Language)),
		Words:    make([]models.TranscriptWord, 0, len(raw.Words)),
	}
	for _, w := range raw.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" || w.End <= w.Start {
			continue
		}
		out.Words = append(out.Words, models.TranscriptWord{Word: text, Start: w.Start, End: w.End})
	}

	if out.Text == "" && len(out.Words) == 0 {
		return nil, fmt.Errorf("transcribe: service returned an empty transcript")
	}
	return out, nil
}
