package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddlewareHonorsInboundHeader(t *testing.T) {
	var seen string
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := requestIDMiddleware(base)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set(requestIDHeader, "req-abc")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if seen != "req-abc" {
		t.Fatalf("expected inbound request id in context, got %q", seen)
	}
	if got := res.Header().Get(requestIDHeader); got != "req-abc" {
		t.Fatalf("expected request id echoed on response, got %q", got)
	}
}

func TestRequestIDMiddlewareMintsWhenAbsent(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestIDFromContext(r.Context()) == "" {
			t.Error("expected generated request id in context")
		}
	})
	handler := requestIDMiddleware(base)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/tasks", nil))

	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id on response")
	}
}

func TestResponseRecorderCapturesStatusAndBytes(t *testing.T) {
	res := httptest.NewRecorder()
	recorder := newResponseRecorder(res)

	recorder.WriteHeader(http.StatusConflict)
	if _, err := recorder.Write([]byte(`{"error":"capture already accepted"}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if recorder.status != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", recorder.status)
	}
	if recorder.bytes == 0 {
		t.Fatal("expected bytes written to be counted")
	}
	if res.Code != http.StatusConflict {
		t.Fatalf("expected status forwarded to underlying writer, got %d", res.Code)
	}
}
