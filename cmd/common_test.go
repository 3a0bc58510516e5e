package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atst-dev/atst/internal/report"
	"github.com/atst-dev/atst/internal/webhook"
)

func TestMain(m *testing.M) {
	// Commands normally build the logger in PersistentPreRun; helpers
	// under test use it directly.
	logger = zap.NewNop()
	os.Exit(m.Run())
}

func TestParseWebhookConfigDisabled(t *testing.T) {
	config, retry, err := parseWebhookConfig(&WebhookConfig{})
	if err != nil {
		t.Fatalf("parseWebhookConfig() error = %v", err)
	}
	if config != nil || retry != nil {
		t.Error("no URL should yield nil configs")
	}
}

func TestParseWebhookConfig(t *testing.T) {
	flags := &WebhookConfig{
		URL:        "https://grades.example.com/hook",
		AuthType:   "bearer",
		AuthToken:  "secret",
		Timeout:    "90s",
		Retries:    5,
		RetryDelay: "250ms",
	}
	config, retry, err := parseWebhookConfig(flags)
	if err != nil {
		t.Fatalf("parseWebhookConfig() error = %v", err)
	}
	if config.URL != flags.URL || config.AuthType != "bearer" || config.AuthToken != "secret" {
		t.Errorf("config = %+v", config)
	}
	if config.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", config.Timeout)
	}
	if retry.MaxRetries != 5 || retry.InitialDelay != 250*time.Millisecond {
		t.Errorf("retry = %+v", retry)
	}
}

func TestParseWebhookConfigBadDurations(t *testing.T) {
	if _, _, err := parseWebhookConfig(&WebhookConfig{URL: "http://x", Timeout: "soon"}); err == nil {
		t.Error("expected error for invalid timeout")
	}
	if _, _, err := parseWebhookConfig(&WebhookConfig{URL: "http://x", RetryDelay: "whenever"}); err == nil {
		t.Error("expected error for invalid retry delay")
	}
}

func TestBuildUploadConfigPrecedence(t *testing.T) {
	t.Setenv("ATST_UPLOAD_CONFIG_ENDPOINT", "env-host:9000")
	t.Setenv("ATST_UPLOAD_CONFIG_SECURE", "false")

	file := filepath.Join(t.TempDir(), "upload.json")
	if err := os.WriteFile(file, []byte(`{"endpoint": "file-host:9000", "bucket": "file-bucket"}`), 0644); err != nil {
		t.Fatal(err)
	}

	conf, err := buildUploadConfig(&UploadConfig{
		ConfigFile: file,
		Config:     `{"bucket": "json-bucket", "access_key": "ak"}`,
		ConfigKV:   []string{"access_key=kv-ak"},
	})
	if err != nil {
		t.Fatalf("buildUploadConfig() error = %v", err)
	}

	if conf["endpoint"] != "file-host:9000" {
		t.Errorf("endpoint = %v, want file value over env", conf["endpoint"])
	}
	if conf["bucket"] != "json-bucket" {
		t.Errorf("bucket = %v, want JSON value over file", conf["bucket"])
	}
	if conf["access_key"] != "kv-ak" {
		t.Errorf("access_key = %v, want key=value override", conf["access_key"])
	}
	if conf["secure"] != false {
		t.Errorf("secure = %v, want false from environment", conf["secure"])
	}
}

func TestBuildUploadConfigErrors(t *testing.T) {
	if _, err := buildUploadConfig(&UploadConfig{Config: "{bad"}); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := buildUploadConfig(&UploadConfig{ConfigKV: []string{"noequals"}}); err == nil {
		t.Error("expected error for invalid key=value pair")
	}
	if _, err := buildUploadConfig(&UploadConfig{Config: `["not", "a", "map"]`}); err == nil {
		t.Error("expected error for non-object config")
	}
}

func TestOutputRunUnknownFormat(t *testing.T) {
	run := &report.Run{Project: "lab1"}
	if err := outputRun(run, "xml"); err == nil {
		t.Error("outputRun() expected error for unknown format")
	}
}

func TestDeliverRun(t *testing.T) {
	var received report.Run
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	run := &report.Run{
		Project: "lab1",
		Solutions: []report.Solution{
			{Name: "alice", Compiled: true, Score: decimal.NewFromInt(4)},
		},
	}
	config := &webhook.Config{URL: server.URL}
	retry := &webhook.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	deliverRun(context.Background(), run, config, retry)

	if !run.WebhookSent {
		t.Errorf("WebhookSent = false, error = %q", run.WebhookError)
	}
	if received.Project != "lab1" || len(received.Solutions) != 1 {
		t.Errorf("received = %+v", received)
	}
	if received.WebhookSent || received.WebhookError != "" {
		t.Error("delivery status must not be part of the delivered payload")
	}
}

func TestDeliverRunFailureIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	run := &report.Run{Project: "lab1"}
	config := &webhook.Config{URL: server.URL}
	retry := &webhook.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	deliverRun(context.Background(), run, config, retry)

	if run.WebhookSent {
		t.Error("WebhookSent = true for a rejected delivery")
	}
	if run.WebhookError == "" {
		t.Error("WebhookError should record the failure")
	}
}
