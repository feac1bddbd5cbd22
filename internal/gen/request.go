package gen

import (
	"time"
)

// Provider identifies a concrete generative backend.
type Provider string

const (
	ProviderGeminiText     Provider = "gemini-text"
	ProviderGeminiImage    Provider = "gemini-image"
	ProviderDashScopeImage Provider = "dashscope-image"
	ProviderKlingVideo     Provider = "kling-video"
)

// Modality describes the kind of artifact a request produces.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// InlineData carries binary content alongside its MIME type, used both for
// reference images attached to a request and for assets returned by a
// provider.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// Part is one ordered element of a multimodal payload. Exactly one field is
// populated.
type Part struct {
	Text       string
	InlineData *InlineData
}

// Request describes a single provider invocation. It is constructed per call
// and discarded once a Result has been produced.
type Request struct {
	Provider   Provider
	Modality   Modality
	Prompt     string
	Parts      []Part
	Config     map[string]any
	Timeout    time.Duration
	MaxRetries int
	RequestID  string
}

// Result is the accumulated outcome of a successful invocation. Exactly one
// of Text or Data is populated, matching the request modality.
type Result struct {
	Text     string
	Data     []byte
	MIMEType string
	Attempt  int
}

// Envelope is the JSON-serializable trace record for a request/result pair.
// It never includes payload bytes, only their sizes.
type Envelope struct {
	Provider     Provider `json:"provider"`
	Modality     Modality `json:"modality"`
	RequestID    string   `json:"requestId,omitempty"`
	TimeoutMs    int64    `json:"timeoutMs"`
	MaxRetries   int      `json:"maxRetries"`
	Attempt      int      `json:"attempt"`
	Status       string   `json:"status"`
	MIMEType     string   `json:"mimeType,omitempty"`
	TextLength   int      `json:"textLength,omitempty"`
	ByteLength   int      `json:"byteLength,omitempty"`
	ErrorKind    string   `json:"errorKind,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// NewEnvelope builds a trace envelope from a finished invocation. Exactly one
// of res and err should be non-nil.
func NewEnvelope(req Request, res *Result, err error) Envelope {
	env := Envelope{
		Provider:   req.Provider,
		Modality:   req.Modality,
		RequestID:  req.RequestID,
		TimeoutMs:  req.Timeout.Milliseconds(),
		MaxRetries: req.MaxRetries,
	}
	if err != nil {
		env.Status = "error"
		env.ErrorMessage = err.Error()
		if ge := AsError(err); ge != nil {
			env.ErrorKind = string(ge.Kind)
			env.Attempt = ge.Attempt
		}
		return env
	}
	env.Status = "ok"
	if res != nil {
		env.Attempt = res.Attempt
		env.MIMEType = res.MIMEType
		env.TextLength = len(res.Text)
		env.ByteLength = len(res.Data)
	}
	return env
}
