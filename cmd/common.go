package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	contextparser "github.com/atst-dev/atst/internal/context"
	"github.com/atst-dev/atst/internal/report"
	"github.com/atst-dev/atst/internal/upload"
	"github.com/atst-dev/atst/internal/webhook"
)

// uploadEnvPrefix is the environment variable prefix for upload
// provider configuration.
const uploadEnvPrefix = "ATST_UPLOAD_CONFIG"

// parseWebhookConfig turns webhook flags into client configuration.
// Returns nil configs when no webhook URL is set.
func parseWebhookConfig(flags *WebhookConfig) (*webhook.Config, *webhook.RetryConfig, error) {
	if flags.URL == "" {
		return nil, nil, nil
	}

	webhookTimeout := webhook.DefaultTimeout
	if flags.Timeout != "" {
		var err error
		webhookTimeout, err = time.ParseDuration(flags.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid webhook timeout duration: %w", err)
		}
	}

	retry := webhook.DefaultRetryConfig()
	retry.MaxRetries = flags.Retries
	if flags.RetryDelay != "" {
		delay, err := time.ParseDuration(flags.RetryDelay)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid webhook retry delay: %w", err)
		}
		retry.InitialDelay = delay
	}

	config := &webhook.Config{
		URL:       flags.URL,
		Method:    "POST",
		Timeout:   webhookTimeout,
		AuthType:  flags.AuthType,
		AuthToken: flags.AuthToken,
	}
	return config, retry, nil
}

// deliverRun sends the run report to the configured webhook, recording
// the delivery status on the local copy. Webhook failures never fail
// the evaluation itself.
func deliverRun(ctx context.Context, run *report.Run, config *webhook.Config, retry *webhook.RetryConfig) {
	if config == nil || config.URL == "" {
		return
	}

	client := webhook.NewClient(config, retry, logger)
	logger.Debug("sending report webhook", zap.String("url", config.URL))

	// The delivered payload must not carry local-only delivery status.
	payload := *run
	payload.WebhookSent = false
	payload.WebhookError = ""

	if err := client.Send(ctx, &payload); err != nil {
		logger.Warn("webhook delivery failed", zap.Error(err))
		run.WebhookSent = false
		run.WebhookError = err.Error()
	} else {
		run.WebhookSent = true
	}
}

// setupUploadProvider builds and configures the upload provider, or
// returns nil when none is requested.
func setupUploadProvider(flags *UploadConfig) (upload.Provider, error) {
	if flags.Provider == "" {
		return nil, nil
	}

	conf, err := buildUploadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload config: %w", err)
	}

	provider, err := upload.NewProvider(flags.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload provider: %w", err)
	}
	if err := provider.Configure(conf); err != nil {
		return nil, fmt.Errorf("failed to configure upload provider: %w", err)
	}
	return provider, nil
}

// uploadRun uploads the JSON-rendered run report, plus the compiler
// diagnostics of every solution that failed to build.
func uploadRun(ctx context.Context, provider upload.Provider, run *report.Run, remotePath string) error {
	if remotePath == "" {
		remotePath = fmt.Sprintf("reports/%s.json", run.Project)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report for upload: %w", err)
	}
	if err := provider.Upload(ctx, bytes.NewReader(data), remotePath); err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}
	logger.Debug("report uploaded", zap.String("path", remotePath))

	for _, sol := range run.Solutions {
		if sol.Compiled || sol.CompileLog == "" {
			continue
		}
		logPath := fmt.Sprintf("logs/%s/%s.log", run.Project, sol.Name)
		if err := provider.Upload(ctx, strings.NewReader(sol.CompileLog), logPath); err != nil {
			return fmt.Errorf("failed to upload compile log for %s: %w", sol.Name, err)
		}
		logger.Debug("compile log uploaded", zap.String("path", logPath))
	}
	return nil
}

// buildUploadConfig merges upload configuration from environment, file,
// JSON string and key=value pairs, in that precedence order.
func buildUploadConfig(flags *UploadConfig) (map[string]any, error) {
	contexts := []any{}

	if env := parseUploadEnv(); env != nil {
		contexts = append(contexts, env)
	}

	if flags.ConfigFile != "" {
		fileConfig, err := contextparser.ParseFile(flags.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload config file: %w", err)
		}
		contexts = append(contexts, fileConfig)
	}

	if flags.Config != "" {
		jsonConfig, err := contextparser.ParseJSON(flags.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload config JSON: %w", err)
		}
		contexts = append(contexts, jsonConfig)
	}

	if len(flags.ConfigKV) > 0 {
		kvConfig := make(map[string]any)
		for _, kv := range flags.ConfigKV {
			key, value, err := contextparser.ParseKV(kv)
			if err != nil {
				return nil, fmt.Errorf("failed to parse upload config KV: %w", err)
			}
			kvConfig[key] = value
		}
		contexts = append(contexts, kvConfig)
	}

	result := contextparser.MergeContexts(contexts...)
	if result == nil {
		return make(map[string]any), nil
	}
	if m, ok := result.(map[string]any); ok {
		return m, nil
	}
	return nil, fmt.Errorf("upload config must be an object/map")
}

// parseUploadEnv reads ATST_UPLOAD_CONFIG* environment variables.
func parseUploadEnv() map[string]any {
	config := make(map[string]any)
	if env := contextparser.ParseEnvWithPrefix(uploadEnvPrefix); env != nil {
		maps.Copy(config, env)
	}
	if len(config) == 0 {
		return nil
	}
	return config
}

// outputRun renders the run report to stdout in the requested format.
func outputRun(run *report.Run, format string) error {
	switch format {
	case "json":
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	case "text":
		report.Print(os.Stdout, run)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected 'text' or 'json')", format)
	}
}
