package gen

import (
	"context"
	"errors"
	"io"
	"testing"
)

type sliceStream struct {
	chunks []Chunk
	pos    int
	err    error
	closed bool
}

func (s *sliceStream) Next(ctx context.Context) (*Chunk, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return &c, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func TestAccumulateBufferedIdentity(t *testing.T) {
	res, err := Accumulate(context.Background(), ModalityImage, &Response{Data: []byte{1, 2, 3}, MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("Accumulate returned error: %v", err)
	}
	if len(res.Data) != 3 || res.MIMEType != "image/png" {
		t.Fatalf("got %+v, want identity pass", res)
	}
}

func TestAccumulateTextPreservesOrder(t *testing.T) {
	stream := &sliceStream{chunks: []Chunk{
		{Parts: []Part{{Text: "{\"cuts\":"}}},
		{},
		{Parts: []Part{{Text: "["}, {Text: "]}"}}},
	}}
	res, err := Accumulate(context.Background(), ModalityText, &Response{Stream: stream})
	if err != nil {
		t.Fatalf("Accumulate returned error: %v", err)
	}
	if res.Text != `{"cuts":[]}` {
		t.Fatalf("Text = %q, want concatenation in arrival order", res.Text)
	}
	if !stream.closed {
		t.Fatal("stream was not closed")
	}
}

func TestAccumulateTextTruncatedStreamIsNotAnError(t *testing.T) {
	stream := &sliceStream{
		chunks: []Chunk{{Parts: []Part{{Text: `{"cuts":[{"cutNumber":1`}}}},
		err:    errors.New("unexpected EOF"),
	}
	res, err := Accumulate(context.Background(), ModalityText, &Response{Stream: stream})
	if err != nil {
		t.Fatalf("Accumulate returned error: %v", err)
	}
	if res.Text != `{"cuts":[{"cutNumber":1` {
		t.Fatalf("Text = %q, want partial text surfaced as-is", res.Text)
	}
}

func TestAccumulateFirstBinaryWins(t *testing.T) {
	stream := &sliceStream{chunks: []Chunk{
		{Parts: []Part{{Text: "rendering"}}},
		{Parts: []Part{{InlineData: &InlineData{MIMEType: "image/png", Data: []byte("first")}}}},
		{Parts: []Part{{InlineData: &InlineData{MIMEType: "image/png", Data: []byte("second")}}}},
	}}
	res, err := Accumulate(context.Background(), ModalityImage, &Response{Stream: stream})
	if err != nil {
		t.Fatalf("Accumulate returned error: %v", err)
	}
	if string(res.Data) != "first" {
		t.Fatalf("Data = %q, want first inline part", res.Data)
	}
	if stream.pos != 2 {
		t.Fatalf("drained %d chunks, want early stop after 2", stream.pos)
	}
}

func TestAccumulateBinaryStreamWithoutAsset(t *testing.T) {
	stream := &sliceStream{chunks: []Chunk{{Parts: []Part{{Text: "thinking"}}}}}
	_, err := Accumulate(context.Background(), ModalityImage, &Response{Stream: stream})
	ge := AsError(err)
	if ge == nil || ge.Kind != KindTransient {
		t.Fatalf("error = %v, want transient", err)
	}
}

func TestAccumulateNilResponse(t *testing.T) {
	_, err := Accumulate(context.Background(), ModalityText, nil)
	ge := AsError(err)
	if ge == nil || ge.Kind != KindTerminal {
		t.Fatalf("error = %v, want terminal", err)
	}
}
