package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"regnet/adapters/loader"
	"regnet/adapters/postgres"
	"regnet/app"
	"regnet/domain/network"
	"regnet/domain/run"
	"regnet/internal"
	"regnet/internal/config"
	"regnet/internal/inference"
	"regnet/internal/transition"
	"regnet/ports"
)

func newInferCmd(defaults config.AnalysisConfig, logger func() *internal.Logger) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "infer [motifs] [expression]",
		Short: "Infer a TF x gene network from motifs and expression",
		Long: `Infer a regulatory network for one condition.

Motifs are rows of tf,gene[,score]; expression is a gene x sample table with
a header row. CSV, TSV and XLSX are accepted. The network is written as CSV.

Example: regnet-cli infer motifs.tsv liver.csv --method bere --weight 0.5 -o liver_net.csv`,
		Args: cobra.ExactArgs(2),
	}
	flags := addInferenceFlags(cmd, defaults)
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output CSV path (- for stdout)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := logger()
		opts, err := flags.options(cmd, defaults, log)
		if err != nil {
			return err
		}
		edges, matrices, err := loadInputs(args[0], args[1])
		if err != nil {
			return err
		}
		result, err := inference.Infer(cmd.Context(), edges, matrices[0], opts)
		if err != nil {
			return err
		}
		if len(result.FallbackGenes) > 0 {
			log.Warn("%d genes scored with the fallback value", len(result.FallbackGenes))
		}
		return loader.WriteMatrixFile(out, &result.Matrix)
	}
	return cmd
}

func newTransitionCmd(defaults config.AnalysisConfig, logger func() *internal.Logger) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "transition [motifs] [baseline] [alternate]",
		Short: "Estimate the TF x TF transition between two conditions",
		Long: `Infer a network for each condition and fit the transition matrix T
mapping baseline TF profiles onto alternate ones.

Example: regnet-cli transition motifs.tsv healthy.csv tumor.csv -o transition.csv`,
		Args: cobra.ExactArgs(3),
	}
	inferFlags := addInferenceFlags(cmd, defaults)
	transFlags := addTransitionFlags(cmd, defaults)
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output CSV path (- for stdout)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := logger()
		opts, err := inferFlags.options(cmd, defaults, log)
		if err != nil {
			return err
		}
		edges, matrices, err := loadInputs(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		engine, err := inference.NewEngine(opts)
		if err != nil {
			return err
		}
		baseline, err := engine.Infer(cmd.Context(), edges, matrices[0])
		if err != nil {
			return fmt.Errorf("baseline network: %w", err)
		}
		alternate, err := engine.Infer(cmd.Context(), edges, matrices[1])
		if err != nil {
			return fmt.Errorf("alternate network: %w", err)
		}
		result, err := transition.Estimate(baseline, alternate, transFlags.options())
		if err != nil {
			return err
		}
		if result.Regularized {
			log.Info("transition fit used ridge penalty %g", result.Lambda)
		}
		return loader.WriteMatrixFile(out, &result.Matrix)
	}
	return cmd
}

func newAnalyzeCmd(cfg *config.Config, logger func() *internal.Logger) *cobra.Command {
	var outDir, databaseURL string

	cmd := &cobra.Command{
		Use:   "analyze [motifs] [baseline] [alternate]",
		Short: "Run both networks, the transition, a null ensemble and significance",
		Long: `Run a complete analysis and write every matrix as CSV plus report.json
into the output directory. With a database URL the report is also stored.

Example: regnet-cli analyze motifs.tsv healthy.csv tumor.csv --null-count 200 --workers 8 --out-dir results/`,
		Args: cobra.ExactArgs(3),
	}
	inferFlags := addInferenceFlags(cmd, cfg.Analysis)
	transFlags := addTransitionFlags(cmd, cfg.Analysis)
	null := addNullFlags(cmd, cfg.Analysis)
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for CSV matrices and report.json")
	cmd.Flags().StringVar(&databaseURL, "database-url", cfg.Database.URL, "PostgreSQL URL for storing the report (optional)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := logger()
		opts, err := inferFlags.options(cmd, cfg.Analysis, log)
		if err != nil {
			return err
		}
		nullConfig, randomization, err := null.config(log)
		if err != nil {
			return err
		}
		edges, matrices, err := loadInputs(args[0], args[1], args[2])
		if err != nil {
			return err
		}

		var repo ports.RunRepository
		if databaseURL != "" {
			db, err := sqlx.ConnectContext(cmd.Context(), "postgres", databaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			runRepo := postgres.NewRunRepository(db)
			if err := runRepo.Migrate(cmd.Context()); err != nil {
				return err
			}
			repo = runRepo
		}

		service := app.NewAnalysisService(repo, log)
		report, err := service.Run(cmd.Context(), app.AnalysisRequest{
			Edges:         edges,
			Baseline:      matrices[0],
			Alternate:     matrices[1],
			Inference:     opts,
			Transition:    transFlags.options(),
			Null:          nullConfig,
			Randomization: randomization,
		})
		if err != nil {
			return err
		}
		if err := writeReport(outDir, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s written to %s\n", report.ID, outDir)
		return nil
	}
	return cmd
}

// writeReport stores each matrix as CSV and the whole report as JSON
func writeReport(dir string, report *run.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	matrices := map[string]*network.Matrix{
		"baseline_network.csv":   &report.Baseline.Matrix,
		"alternate_network.csv":  &report.Alternate.Matrix,
		"transition.csv":         &report.Transition.Matrix,
		"z_scores.csv":           report.ZScores,
		"normal_p_values.csv":    report.NormalPValues,
		"empirical_p_values.csv": report.EmpiricalP,
	}
	for name, m := range matrices {
		if m == nil {
			continue
		}
		if err := loader.WriteMatrixFile(filepath.Join(dir, name), m); err != nil {
			return err
		}
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "report.json"), payload, 0o644)
}
