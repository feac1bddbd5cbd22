// Package kling adapts an image-to-video task API to the generation
// pipeline's Adapter contract. The provider is asynchronous: a task is
// submitted, polled until it settles, and the finished asset downloaded.
// Everything is buffered from the accumulator's point of view.
package kling

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

// Options configures the video client.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	PollInterval time.Duration
}

// Client submits image-to-video tasks and polls them to completion. The
// per-attempt deadline of the invoker bounds the whole submit-poll-download
// cycle.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
}

type createTaskRequest struct {
	Model     string `json:"model_name"`
	Image     string `json:"image,omitempty"`
	ImageTail string `json:"image_tail,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

type taskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		TaskResult struct {
			Videos []struct {
				URL      string `json:"url"`
				Duration string `json:"duration"`
			} `json:"videos"`
		} `json:"task_result"`
	} `json:"data"`
}

// NewClient constructs a video client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.klingai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "kling-v1-6"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
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
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// Generate implements gen.Adapter. The request's first inline part is the
// start frame; a second inline part, when present, is the end frame for
// cut-to-cut scenes.
func (c *Client) Generate(ctx context.Context, req gen.Request) (*gen.Response, error) {
	if c.apiKey == "" {
		return nil, gen.Terminal(errors.New("kling: api key is required"))
	}

	var frames []*gen.InlineData
	for _, p := range req.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			frames = append(frames, p.InlineData)
		}
	}
	if len(frames) == 0 {
		return nil, gen.Terminal(errors.New("kling: start frame is required"))
	}

	payload := createTaskRequest{
		Model:  c.model,
		Image:  base64.StdEncoding.EncodeToString(frames[0].Data),
		Prompt: strings.TrimSpace(req.Prompt),
	}
	if len(frames) > 1 {
		payload.ImageTail = base64.StdEncoding.EncodeToString(frames[1].Data)
	}
	if d, ok := req.Config["duration"].(int); ok && d > 0 {
		payload.Duration = fmt.Sprintf("%d", d)
	}

	taskID, err := c.createTask(ctx, payload)
	if err != nil {
		return nil, err
	}

	videoURL, err := c.pollTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	data, err := c.download(ctx, videoURL)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("kling: download video: %w", err))
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("task_id", taskID).
		Int("bytes", len(data)).
		Msg("kling: video generated")

	return &gen.Response{Data: data, MIMEType: "video/mp4"}, nil
}

func (c *Client) createTask(ctx context.Context, payload createTaskRequest) (string, error) {
	out, err := c.call(ctx, http.MethodPost, "/videos/image2video", payload)
	if err != nil {
		return "", err
	}
	if out.Data.TaskID == "" {
		return "", gen.Transient(errors.New("kling: task accepted without id"))
	}
	return out.Data.TaskID, nil
}

func (c *Client) pollTask(ctx context.Context, taskID string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		out, err := c.call(ctx, http.MethodGet, "/videos/image2video/"+taskID, nil)
		if err != nil {
			return "", err
		}
		switch out.Data.TaskStatus {
		case "succeed":
			if len(out.Data.TaskResult.Videos) == 0 {
				return "", gen.Transient(errors.New("kling: task succeeded without video"))
			}
			return out.Data.TaskResult.Videos[0].URL, nil
		case "failed":
			return "", gen.Transient(fmt.Errorf("kling: task failed: %s", out.Message))
		default:
			// submitted / processing; keep polling under the caller deadline.
		}
	}
}

func (c *Client) call(ctx context.Context, method, path string, payload any) (*taskResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, gen.Terminal(fmt.Errorf("kling: encode request: %w", err))
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, gen.Terminal(fmt.Errorf("kling: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("kling: http request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("kling: read response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := fmt.Sprintf("kling status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, gen.Transient(errors.New(msg))
		}
		return nil, gen.Terminal(errors.New(msg))
	}

	var out taskResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, gen.Transient(fmt.Errorf("kling: decode response: %w", err))
	}
	if out.Code != 0 {
		return nil, gen.Transient(fmt.Errorf("kling: code %d: %s", out.Code, out.Message))
	}
	return &out, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var _ gen.Adapter = (*Client)(nil)
