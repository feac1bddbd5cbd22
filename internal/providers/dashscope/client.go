// Package dashscope adapts the DashScope image-synthesis API to the
// generation pipeline's Adapter contract. DashScope answers buffered, so the
// response is an identity pass for the accumulator.
package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without
// credentials.
var ErrMissingAPIKey = errors.New("dashscope: api key is required")

// Options configures the DashScope client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the DashScope multimodal generation API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	defaultSize string
	httpClient  *http.Client
	logger      *infra.Logger
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text string `json:"text,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	Seed           *int   `json:"seed,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected
// dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wan2.2-t2i-flash"
	}
	defaultSize := strings.TrimSpace(opts.DefaultSize)
	if defaultSize == "" {
		defaultSize = "1328*1328"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		model:       model,
		defaultSize: defaultSize,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate implements gen.Adapter for buffered image generation.
func (c *Client) Generate(ctx context.Context, req gen.Request) (*gen.Response, error) {
	if c.apiKey == "" {
		return nil, gen.Terminal(ErrMissingAPIKey)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, gen.Terminal(errors.New("dashscope: prompt is required"))
	}

	payload := generationRequest{
		Model: c.model,
		Input: generationInput{
			Messages: []generationMessage{{
				Role:    "user",
				Content: []generationContent{{Text: prompt}},
			}},
		},
		Parameters: generationParams{Size: c.defaultSize},
	}
	if neg, ok := req.Config["negativePrompt"].(string); ok {
		payload.Parameters.NegativePrompt = neg
	}
	if size, ok := req.Config["size"].(string); ok && size != "" {
		payload.Parameters.Size = size
	}
	if seed, ok := req.Config["seed"].(int); ok && seed > 0 {
		payload.Parameters.Seed = &seed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, gen.Terminal(fmt.Errorf("dashscope: encode request: %w", err))
	}
	endpoint := c.baseURL + "/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, gen.Terminal(fmt.Errorf("dashscope: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("dashscope: http request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("dashscope: read response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := fmt.Sprintf("dashscope status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, gen.Transient(errors.New(msg))
		}
		return nil, gen.Terminal(errors.New(msg))
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, gen.Transient(fmt.Errorf("dashscope: decode response: %w", err))
	}
	if decoded.Code != "" {
		return nil, gen.Transient(fmt.Errorf("dashscope: %s: %s", decoded.Code, decoded.Message))
	}

	image := firstImage(decoded)
	if image == "" {
		return nil, gen.Transient(errors.New("dashscope: response carries no image"))
	}

	data, mime, err := c.resolveImage(ctx, image)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("dashscope: resolve image: %w", err))
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("bytes", len(data)).
		Msg("dashscope: image generated")

	return &gen.Response{Data: data, MIMEType: mime}, nil
}

func firstImage(resp generationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if content.Image != "" {
				return content.Image
			}
		}
	}
	return ""
}

// resolveImage handles both delivery shapes: a signed URL to download, or
// inline base64.
func (c *Client) resolveImage(ctx context.Context, image string) ([]byte, string, error) {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, image, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, "", fmt.Errorf("download status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		mime := resp.Header.Get("Content-Type")
		if mime == "" {
			mime = "image/png"
		}
		return data, mime, nil
	}

	data, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, "", fmt.Errorf("decode inline image: %w", err)
	}
	return data, "image/png", nil
}

var _ gen.Adapter = (*Client)(nil)
