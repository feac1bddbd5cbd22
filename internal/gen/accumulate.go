package gen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Chunk is one streamed fragment of a provider response. A chunk may carry
// zero usable parts; the accumulator skips those without error.
type Chunk struct {
	Parts []Part
}

// ChunkReader drains an ordered stream of response chunks. Next returns
// io.EOF once the stream is finished. Implementations must be safe to Close
// more than once.
type ChunkReader interface {
	Next(ctx context.Context) (*Chunk, error)
	Close() error
}

// Response is the raw provider output before accumulation. Buffered
// providers populate Text or Data directly; streaming providers set Stream
// and leave the rest empty.
type Response struct {
	Text     string
	Data     []byte
	MIMEType string
	Stream   ChunkReader
}

// Accumulate collapses a provider response into a single Result. For
// buffered responses this is an identity pass. Streamed text is concatenated
// in arrival order. For streamed binary the first chunk carrying a non-empty
// inline part wins and the drain stops early; a provider that streams a
// preview asset before the final one would be kept wrongly, which is a known
// limitation of the upstream contract.
//
// A stream that ends mid-object yields a shorter-than-expected text, not an
// error. Truncation detection belongs to the structured extractor.
func Accumulate(ctx context.Context, modality Modality, resp *Response) (*Result, error) {
	if resp == nil {
		return nil, Terminal(errors.New("empty provider response"))
	}
	if resp.Stream == nil {
		return &Result{Text: resp.Text, Data: resp.Data, MIMEType: resp.MIMEType}, nil
	}
	defer resp.Stream.Close()

	if modality == ModalityText {
		return drainText(ctx, resp.Stream)
	}
	return drainFirstBinary(ctx, resp.Stream)
}

func drainText(ctx context.Context, stream ChunkReader) (*Result, error) {
	var sb strings.Builder
	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// A connection dropped mid-stream leaves us with whatever text
			// arrived so far. Surface it and let the extractor judge.
			if sb.Len() > 0 {
				break
			}
			return nil, Transient(fmt.Errorf("drain stream: %w", err))
		}
		if chunk == nil {
			continue
		}
		for _, part := range chunk.Parts {
			sb.WriteString(part.Text)
		}
	}
	return &Result{Text: sb.String(), MIMEType: "text/plain"}, nil
}

func drainFirstBinary(ctx context.Context, stream ChunkReader) (*Result, error) {
	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil, Transient(errors.New("stream ended without binary content"))
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, Transient(fmt.Errorf("drain stream: %w", err))
		}
		if chunk == nil {
			continue
		}
		for _, part := range chunk.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &Result{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}
}
