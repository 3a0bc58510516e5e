package cmd

import (
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/atst-dev/atst/internal/analysis"
	"github.com/atst-dev/atst/internal/config"
	"github.com/atst-dev/atst/internal/report"
)

var (
	analyseConfigFile string
	analyseFormat     string
)

var analyseCmd = &cobra.Command{
	Use:   "analyse <project-dir>",
	Short: "Run only the static analysers over all solutions",
	Long: `Scan every solution's source text with the configured analysers,
without compiling or executing anything. The reported score of each
solution is the sum of applied penalties.

Useful for a quick pass over submissions before the full evaluation, or
when no compiler toolchain is available.`,
	Example: `  atst analyse ./project1 -c tests.yaml
  atst analyse ./project1 -c tests.yaml --format json`,
	Args: cobra.ExactArgs(1),
	RunE: analyseCommand,
}

func analyseCommand(cmd *cobra.Command, args []string) error {
	projectRoot := args[0]

	configPath := analyseConfigFile
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(projectRoot, configPath)
	}
	cfg, err := config.Load(configPath, logger)
	if err != nil {
		return err
	}

	analysers, err := analysis.FromSpecs(cfg.Analyses, logger)
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

	run := &report.Run{Project: filepath.Base(projectRoot)}
	for _, sol := range solutions {
		out := report.Solution{Name: sol.Name, Score: decimal.Zero}
		if sol.SourceMissing {
			out.MissingSource = true
			run.Solutions = append(run.Solutions, out)
			continue
		}
		out.Analyses = analysis.Run(analysers, sol.Source)
		for _, res := range out.Analyses {
			out.Score = out.Score.Add(res.Penalty)
		}
		run.Solutions = append(run.Solutions, out)
	}

	return outputRun(run, analyseFormat)
}

func init() {
	analyseCmd.Flags().StringVarP(&analyseConfigFile, "config", "c", "atst.yaml", "Configuration file, relative to the project directory")
	analyseCmd.Flags().StringVar(&analyseFormat, "format", "text", "Output format: text or json")
}
