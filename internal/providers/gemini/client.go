// Package gemini adapts the Gemini generateContent API family to the
// generation pipeline's Adapter contract. Text and image requests both go
// through the streaming endpoint; the accumulator decides how to drain.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client speaks the generateContent wire protocol for both the text and the
// image model of the family.
type Client struct {
	apiKey     string
	baseURL    string
	text       string
	image      string
	httpClient *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64  `json:"temperature,omitempty"`
	CandidateCount   int      `json:"candidateCount,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseModality []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiStreamChunk struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with a long timeout is created,
// since streaming responses stay open for the whole generation.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	textModel := opts.TextModel
	if textModel == "" {
		textModel = "gemini-2.5-flash"
	}
	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
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
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		text:       textModel,
		image:      imageModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Generate implements gen.Adapter. The returned response carries an open SSE
// stream; closing it is the accumulator's responsibility.
func (c *Client) Generate(ctx context.Context, req gen.Request) (*gen.Response, error) {
	model := c.text
	config := &geminiGenerationConfig{CandidateCount: 1}
	if req.Modality == gen.ModalityImage {
		model = c.image
		config.ResponseModality = []string{"IMAGE"}
	} else if mime, ok := req.Config["responseMimeType"].(string); ok {
		config.ResponseMimeType = mime
	}
	if temp, ok := req.Config["temperature"].(float64); ok {
		config.Temperature = temp
	}

	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: buildParts(req)}},
		GenerationConfig: config,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, gen.Terminal(fmt.Errorf("marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, gen.Terminal(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, gen.Transient(fmt.Errorf("invoke gemini: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, classifyStatus(resp)
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", model).
		Msg("gemini: stream opened")

	return &gen.Response{Stream: newSSEReader(resp.Body)}, nil
}

func buildParts(req gen.Request) []geminiPart {
	parts := make([]geminiPart, 0, len(req.Parts)+1)
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		parts = append(parts, geminiPart{Text: prompt})
	}
	for _, p := range req.Parts {
		switch {
		case p.InlineData != nil:
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: p.InlineData.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
			}})
		case p.Text != "":
			parts = append(parts, geminiPart{Text: p.Text})
		}
	}
	return parts
}

// classifyStatus maps HTTP failures onto the retry taxonomy: 429 and 5xx are
// transient, everything else means the request itself is wrong.
func classifyStatus(resp *http.Response) error {
	msg := fmt.Sprintf("gemini status %d", resp.StatusCode)
	var apiErr geminiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		msg = fmt.Sprintf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return gen.Transient(fmt.Errorf("%s", msg))
	}
	return gen.Terminal(fmt.Errorf("%s", msg))
}

// maxSSEFrameSize bounds a single `data:` line. Inline images arrive
// base64-encoded in one frame, so this must comfortably exceed the largest
// asset the image model emits.
const maxSSEFrameSize = 64 * 1024 * 1024

// sseReader drains `data: {...}` lines from a server-sent-events body into
// gen.Chunk values.
type sseReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newSSEReader(body io.ReadCloser) *sseReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSEFrameSize)
	return &sseReader{body: body, scanner: scanner}
}

func (r *sseReader) Next(ctx context.Context) (*gen.Chunk, error) {
	for r.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(r.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk geminiStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed frame; skip it rather than abort the drain.
			continue
		}
		return toChunk(chunk), nil
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("gemini: sse frame exceeds %d MiB limit: %w", maxSSEFrameSize>>20, err)
		}
		return nil, err
	}
	return nil, io.EOF
}

func (r *sseReader) Close() error {
	return r.body.Close()
}

func toChunk(chunk geminiStreamChunk) *gen.Chunk {
	out := &gen.Chunk{}
	for _, cand := range chunk.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					continue
				}
				out.Parts = append(out.Parts, gen.Part{InlineData: &gen.InlineData{
					MIMEType: part.InlineData.MimeType,
					Data:     decoded,
				}})
				continue
			}
			if part.Text != "" {
				out.Parts = append(out.Parts, gen.Part{Text: part.Text})
			}
		}
	}
	return out
}

var _ gen.Adapter = (*Client)(nil)
