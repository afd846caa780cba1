package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DALLEConfig configures the OpenAI image backend.
type DALLEConfig struct {
	APIKey string
	// BaseURL defaults to the public OpenAI API.
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// DALLE calls the OpenAI images API and returns hosted URLs.
type DALLE struct {
	client *openai.Client
	model  string
}

// NewDALLE requires an API key.
func NewDALLE(cfg DALLEConfig) (*DALLE, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("imagegen: OPENAI_API_KEY is not set")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &DALLE{client: openai.NewClientWithConfig(oc), model: model}, nil
}

// Generate implements Backend. dall-e-3 accepts one image per request, so
// larger batches are issued one call at a time.
func (d *DALLE) Generate(ctx context.Context, job Job) ([]string, error) {
	perCall, calls := job.N, 1
	if d.model == openai.CreateImageModelDallE3 {
		perCall, calls = 1, job.N
	}
	urls := make([]string, 0, job.N)
	for i := 0; i < calls; i++ {
		resp, err := d.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         job.Prompt,
			Model:          d.model,
			N:              perCall,
			Size:           job.Size,
			ResponseFormat: openai.CreateImageResponseFormatURL,
		})
		if err != nil {
			return urls, fmt.Errorf("dalle: %w", err)
		}
		if len(resp.Data) == 0 {
			return urls, errors.New("dalle: no image data in response")
		}
		for _, item := range resp.Data {
			urls = append(urls, item.URL)
		}
	}
	return urls, nil
}
