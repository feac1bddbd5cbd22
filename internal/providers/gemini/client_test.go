package gemini

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func textChunkLine(text string) string {
	return fmt.Sprintf(`data: {"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestGenerateStreamsText(t *testing.T) {
	srv := sseServer(t, []string{
		textChunkLine(`{"cuts":`),
		"data: ",
		textChunkLine(`[]}`),
	})
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	req := gen.Request{Provider: gen.ProviderGeminiText, Modality: gen.ModalityText, Prompt: "storyboard"}
	resp, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	res, err := gen.Accumulate(context.Background(), gen.ModalityText, resp)
	if err != nil {
		t.Fatalf("Accumulate returned error: %v", err)
	}
	if res.Text != `{"cuts":[]}` {
		t.Fatalf("Text = %q", res.Text)
	}
}

func TestGenerateStreamsFirstInlineImage(t *testing.T) {
	first := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	srv := sseServer(t, []string{
		textChunkLine("rendering"),
		fmt.Sprintf(`data: {"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":%q}}]}}]}`, first),
	})
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	req := gen.Request{Provider: gen.ProviderGeminiImage, Modality: gen.ModalityImage, Prompt: "2x2 grid"}
	resp, err := client.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	res, err := gen.Accumulate(context.Background(), gen.ModalityImage, resp)
	if err != nil {
		t.Fatalf("Accumulate returned error: %v", err)
	}
	if string(res.Data) != "png-bytes" || res.MIMEType != "image/png" {
		t.Fatalf("res = %+v", res)
	}
}

func TestGenerateClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   gen.ErrorKind
	}{
		{http.StatusTooManyRequests, gen.KindTransient},
		{http.StatusServiceUnavailable, gen.KindTransient},
		{http.StatusBadRequest, gen.KindTerminal},
		{http.StatusForbidden, gen.KindTerminal},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			fmt.Fprint(w, `{"error":{"message":"nope"}}`)
		}))
		client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
		_, err := client.Generate(context.Background(), gen.Request{Modality: gen.ModalityText, Prompt: "p"})
		srv.Close()

		ge := gen.AsError(err)
		if ge == nil || ge.Kind != tc.want {
			t.Fatalf("status %d: error = %v, want kind %q", tc.status, err, tc.want)
		}
		if !strings.Contains(err.Error(), "nope") {
			t.Fatalf("status %d: error %q missing provider message", tc.status, err)
		}
	}
}

func TestStreamOversizedFrameNamesLimit(t *testing.T) {
	// A frame over the scanner cap must fail with an error that names the
	// limit, not a bare bufio.ErrTooLong. The cap here is shrunk so the test
	// does not have to build a frame past maxSSEFrameSize.
	line := "data: " + strings.Repeat("a", 4096) + "\n"
	scanner := bufio.NewScanner(strings.NewReader(line))
	scanner.Buffer(make([]byte, 0, 64), 1024)
	r := &sseReader{body: io.NopCloser(strings.NewReader("")), scanner: scanner}

	_, err := r.Next(context.Background())
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("Next returned %v, want bufio.ErrTooLong", err)
	}
	if !strings.Contains(err.Error(), "MiB limit") {
		t.Fatalf("error %q does not name the frame limit", err)
	}
}

func TestGenerateSendsInlineReferenceParts(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprint(w, textChunkLine("ok")+"\n\n")
	}))
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	req := gen.Request{
		Modality: gen.ModalityImage,
		Prompt:   "same character",
		Parts: []gen.Part{
			{InlineData: &gen.InlineData{MIMEType: "image/png", Data: []byte("ref")}},
		},
	}
	if _, err := client.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.Contains(gotBody, base64.StdEncoding.EncodeToString([]byte("ref"))) {
		t.Fatalf("request body %q missing inline reference", gotBody)
	}
}
