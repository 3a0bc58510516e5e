package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atst-dev/atst/internal/config"
	contextparser "github.com/atst-dev/atst/internal/context"
	"github.com/atst-dev/atst/internal/evaluate"
	"github.com/atst-dev/atst/internal/project"
	"github.com/atst-dev/atst/internal/report"
)

var (
	runConfigFile   string
	runSolution     string
	runJobs         int
	runFormat       string
	runContextFlags ContextConfig
	runWebhookFlags WebhookConfig
	runUploadFlags  UploadConfig
)

var runCmd = &cobra.Command{
	Use:   "run <project-dir>",
	Short: "Evaluate all solutions in a project directory",
	Long: `Evaluate every solution subdirectory of the project directory against
the configured test suite and analysers.

Each solution is compiled into its own temporary directory, executed
against the configured test cases under the configured timeout, scanned
by the static analysers, and given a final score. Failures of one
solution never affect the others.`,
	Example: `  atst run ./project1 -c tests.yaml
  atst run ./project1 -c tests.yaml --solution xlogin00 --format json
  atst run ./project1 -c tests.yaml -j 8 --webhook-url https://grades.example.com/hook`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

func runCommand(cmd *cobra.Command, args []string) error {
	projectRoot := args[0]

	configPath := runConfigFile
	if !filepath.IsAbs(configPath) {
		// The config file is configured relative to the project it
		// describes.
		configPath = filepath.Join(projectRoot, configPath)
	}
	cfg, err := config.Load(configPath, logger)
	if err != nil {
		return err
	}

	solutions, err := discoverSolutions(projectRoot, cfg)
	if err != nil {
		return err
	}
	if len(solutions) == 0 {
		logger.Warn("no solutions to analyse")
	}

	webhookCfg, retryCfg, err := parseWebhookConfig(&runWebhookFlags)
	if err != nil {
		return err
	}
	provider, err := setupUploadProvider(&runUploadFlags)
	if err != nil {
		return err
	}
	runContext, err := contextparser.BuildContext(
		runContextFlags.JSON, runContextFlags.KV, runContextFlags.File)
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}

	engine, err := evaluate.New(cfg, projectRoot, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := engine.Run(ctx, solutions, runJobs)
	if err != nil {
		return err
	}

	run := &report.Run{
		Project:   filepath.Base(projectRoot),
		Solutions: results,
		Context:   runContext,
	}

	deliverRun(ctx, run, webhookCfg, retryCfg)

	if provider != nil {
		if err := uploadRun(ctx, provider, run, runUploadFlags.RemotePath); err != nil {
			return err
		}
	}

	return outputRun(run, runFormat)
}

// discoverSolutions lists the solutions to evaluate: one explicitly
// selected directory, or every subdirectory minus exclusions.
func discoverSolutions(projectRoot string, cfg *config.Config) ([]project.Solution, error) {
	if runSolution != "" {
		dir := filepath.Join(projectRoot, runSolution)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			logger.Warn("selected solution does not exist", zap.String("solution", runSolution))
			return nil, nil
		}
		return []project.Solution{project.Load(dir, cfg.Source)}, nil
	}
	return project.Discover(projectRoot, cfg.Source, cfg.Solutions.ExcludeDirs)
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFile, "config", "c", "atst.yaml", "Configuration file, relative to the project directory")
	runCmd.Flags().StringVarP(&runSolution, "solution", "s", "", "Evaluate only the named solution directory")
	runCmd.Flags().IntVarP(&runJobs, "jobs", "j", 0, "Number of solutions to evaluate in parallel (default: number of CPUs)")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "Output format: text or json")

	SetupContextFlags(runCmd, &runContextFlags)
	SetupWebhookFlags(runCmd, &runWebhookFlags)
	SetupUploadFlags(runCmd, &runUploadFlags)
}
