package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ModelslabURL is the realtime text2img endpoint.
const ModelslabURL = "https://modelslab.com/api/v6/realtime/text2img"

// ModelslabConfig configures the cloud Stable Diffusion backend.
type ModelslabConfig struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Modelslab calls the Modelslab realtime API and returns image URLs.
type Modelslab struct {
	key      string
	endpoint string
	hc       *http.Client
	timeout  time.Duration
}

// NewModelslab requires an API key.
func NewModelslab(cfg ModelslabConfig) (*Modelslab, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("imagegen: MODELSLAB_API_KEY is not set")
	}
	m := &Modelslab{key: cfg.APIKey, endpoint: cfg.Endpoint, hc: cfg.HTTPClient, timeout: cfg.Timeout}
	if m.endpoint == "" {
		m.endpoint = ModelslabURL
	}
	if m.hc == nil {
		m.hc = http.DefaultClient
	}
	if m.timeout <= 0 {
		m.timeout = 120 * time.Second
	}
	return m, nil
}

type modelslabRequest struct {
	Key            string  `json:"key"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          string  `json:"width"`
	Height         string  `json:"height"`
	Samples        int     `json:"samples"`
	Seed           *int64  `json:"seed"`
	SafetyChecker  bool    `json:"safety_checker"`
	Base64         bool    `json:"base64"`
	Webhook        *string `json:"webhook"`
	TrackID        *string `json:"track_id"`
}

type modelslabResponse struct {
	Status string   `json:"status"`
	Output []string `json:"output"`
}

// Generate implements Backend.
func (m *Modelslab) Generate(ctx context.Context, job Job) ([]string, error) {
	body, err := json.Marshal(modelslabRequest{
		Key:            m.key,
		Prompt:         job.Prompt,
		NegativePrompt: job.NegativePrompt,
		Width:          strconv.Itoa(job.Width),
		Height:         strconv.Itoa(job.Height),
		Samples:        job.N,
		Seed:           job.Overrides.Seed,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("modelslab: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("modelslab: read response: %w", err)
	}
	var out modelslabResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("modelslab: http %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("modelslab error: %s", truncate(string(raw), 2048))
	}
	urls := make([]string, 0, len(out.Output))
	for _, u := range out.Output {
		urls = append(urls, cleanURL(u))
	}
	return urls, nil
}

// cleanURL undoes JSON-style slash escaping the API sometimes leaves in place.
func cleanURL(u string) string {
	u = strings.ReplaceAll(u, `\/`, "/")
	return strings.ReplaceAll(u, `\`, "")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
