package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atst-dev/atst/internal/report"
)

func testRun() *report.Run {
	return &report.Run{
		Project: "lab3",
		Solutions: []report.Solution{
			{Name: "alice", Compiled: true, Score: decimal.NewFromFloat(3.8)},
		},
	}
}

func fastRetries() *RetryConfig {
	return &RetryConfig{
		MaxRetries:   2,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestSendSuccess(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL}, fastRetries(), nil)
	if err := client.Send(context.Background(), testRun()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	var decoded report.Run
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Project != "lab3" || len(decoded.Solutions) != 1 {
		t.Errorf("decoded payload = %+v", decoded)
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL}, fastRetries(), nil)
	if err := client.Send(context.Background(), testRun()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL}, fastRetries(), nil)
	if err := client.Send(context.Background(), testRun()); err == nil {
		t.Fatal("Send() expected error for 400 response, got nil")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (400 is not retryable)", got)
	}
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL}, fastRetries(), nil)
	if err := client.Send(context.Background(), testRun()); err == nil {
		t.Fatal("Send() expected error after exhausting retries, got nil")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3 (initial + 2 retries)", got)
	}
}

func TestSendAuthHeaders(t *testing.T) {
	tests := []struct {
		name       string
		authType   string
		wantHeader string
		wantValue  string
	}{
		{"bearer token", "bearer", "Authorization", "Bearer secret"},
		{"api key", "api-key", "X-API-Key", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tt.wantHeader)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := NewClient(&Config{
				URL:       server.URL,
				AuthType:  tt.authType,
				AuthToken: "secret",
			}, fastRetries(), nil)
			if err := client.Send(context.Background(), testRun()); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestSendCustomHeadersAndMethod(t *testing.T) {
	var gotMethod, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Course")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{
		URL:     server.URL,
		Method:  "PUT",
		Headers: map[string]string{"X-Course": "systems-101"},
	}, fastRetries(), nil)
	if err := client.Send(context.Background(), testRun()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotMethod != "PUT" {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotHeader != "systems-101" {
		t.Errorf("X-Course = %q, want systems-101", gotHeader)
	}
}

func TestSendUnreachableEndpoint(t *testing.T) {
	client := NewClient(&Config{
		URL:     "http://127.0.0.1:1/webhook",
		Timeout: 500 * time.Millisecond,
	}, fastRetries(), nil)
	if err := client.Send(context.Background(), testRun()); err == nil {
		t.Fatal("Send() expected error for unreachable endpoint, got nil")
	}
}
