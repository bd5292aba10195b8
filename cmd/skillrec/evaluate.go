package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hyperjump/skillrec/internal/evaluation"
	"github.com/hyperjump/skillrec/internal/models"
	"github.com/spf13/cobra"
)

var evalKs []int

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure mean recall@k of retrieval against the catalog itself",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return runEvaluation(cmd.Context(), s.engine, s.engine.Index().Entries(), s.cfg.Recommend.OutputDir, evalKs, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().IntSliceVar(&evalKs, "k", []int{5, 10}, "retrieval depths to evaluate")
}

// runEvaluation replaces the results file in dir with one report per k.
func runEvaluation(ctx context.Context, s evaluation.Searcher, entries []*models.CatalogEntry, dir string, ks []int, out io.Writer) error {
	for _, k := range ks {
		if k <= 0 {
			return fmt.Errorf("invalid k %d: must be positive", k)
		}
	}
	cases := evaluation.BuildCases(entries)
	if len(cases) == 0 {
		return errors.New("no evaluation cases: catalog has no named entries")
	}
	if err := evaluation.Reset(dir); err != nil {
		return err
	}
	for _, k := range ks {
		r, err := evaluation.Run(ctx, s, cases, k)
		if err != nil {
			return err
		}
		if err := evaluation.Append(dir, r); err != nil {
			return err
		}
		fmt.Fprintf(out, "recall@%d  title %.4f  description %.4f  (%d queries)\n",
			k, r.TitleRecall, r.DescriptionRecall, r.Cases)
	}
	fmt.Fprintf(out, "Results written to %s\n", filepath.Join(dir, evaluation.ResultsFile))
	return nil
}
