package cmd

import (
	"github.com/spf13/cobra"
)

// ContextConfig holds context-related flags.
type ContextConfig struct {
	JSON string
	KV   []string
	File string
}

// UploadConfig holds upload-related flags.
type UploadConfig struct {
	Provider   string
	Config     string
	ConfigKV   []string
	ConfigFile string
	RemotePath string
}

// WebhookConfig holds webhook-related flags.
type WebhookConfig struct {
	URL        string
	AuthType   string
	AuthToken  string
	Timeout    string
	Retries    int
	RetryDelay string
}

// SetupContextFlags adds context-related flags to a command.
func SetupContextFlags(cmd *cobra.Command, config *ContextConfig) {
	cmd.Flags().StringVar(&config.JSON, "context", "", "Context data as JSON string")
	cmd.Flags().StringArrayVar(&config.KV, "context-kv", nil, "Context key=value pairs (can be used multiple times)")
	cmd.Flags().StringVar(&config.File, "context-file", "", "Path to JSON file containing context data")
}

// SetupUploadFlags adds upload-related flags to a command.
func SetupUploadFlags(cmd *cobra.Command, config *UploadConfig) {
	cmd.Flags().StringVar(&config.Provider, "upload-provider", "", "Upload provider type (e.g., minio)")
	cmd.Flags().StringVar(&config.Config, "upload-config", "", "Upload configuration as JSON string")
	cmd.Flags().StringArrayVar(&config.ConfigKV, "upload-config-kv", nil, "Upload config key=value pairs (can be used multiple times)")
	cmd.Flags().StringVar(&config.ConfigFile, "upload-config-file", "", "Path to JSON file containing upload configuration")
	cmd.Flags().StringVar(&config.RemotePath, "upload-path", "", "Remote path for the uploaded report (default reports/<project>.json)")
}

// SetupWebhookFlags adds webhook-related flags to a command.
func SetupWebhookFlags(cmd *cobra.Command, config *WebhookConfig) {
	cmd.Flags().StringVar(&config.URL, "webhook-url", "", "Webhook URL to send the report to")
	cmd.Flags().StringVar(&config.AuthType, "webhook-auth-type", "none", "Authentication type: none, bearer, api-key")
	cmd.Flags().StringVar(&config.AuthToken, "webhook-auth-token", "", "Authentication token (use with --webhook-auth-type)")
	cmd.Flags().IntVar(&config.Retries, "webhook-retries", 3, "Maximum webhook retry attempts (0 = no retries)")
	cmd.Flags().StringVar(&config.RetryDelay, "webhook-retry-delay", "1s", "Initial delay between webhook retries")
	cmd.Flags().StringVar(&config.Timeout, "webhook-timeout", "30s", "Total timeout for webhook including retries")
}
