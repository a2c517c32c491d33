package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vantagecrm/vantage/pkg/contextkeys"
)

func TestRequestID_EchoesInboundHeader(t *testing.T) {
	var inContext string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inContext = contextkeys.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "corr-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "corr-abc-123" {
		t.Errorf("response %s = %q, want echoed corr-abc-123", RequestIDHeader, got)
	}
	if inContext != "corr-abc-123" {
		t.Errorf("context request id = %q, want corr-abc-123", inContext)
	}
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var inContext string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inContext = contextkeys.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	generated := rec.Header().Get(RequestIDHeader)
	if generated == "" {
		t.Fatal("request id should be generated when absent")
	}
	if inContext != generated {
		t.Errorf("context id %q != response header %q", inContext, generated)
	}
}
