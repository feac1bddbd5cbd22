package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDHonorsValidUUID(t *testing.T) {
	want := uuid.NewString()
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, want)
	handler.ServeHTTP(rec, req)

	if got != want {
		t.Fatalf("context id %q, want %q", got, want)
	}
	if rec.Header().Get(RequestIDHeader) != want {
		t.Fatalf("response header %q, want %q", rec.Header().Get(RequestIDHeader), want)
	}
}

func TestRequestIDReplacesInvalidID(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid; drop table")
	handler.ServeHTTP(rec, req)

	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("replacement id %q is not a uuid", got)
	}
	if got == "not-a-uuid; drop table" {
		t.Fatal("invalid inbound id was honored")
	}
}
