package main

import (
	"fmt"

	"github.com/fpang/ai-gallery/internal/analysis"
	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Batch flags
var (
	batchLimitFlag    int
	batchStyleFlag    string
	batchNoRenameFlag bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze media that has not been analyzed yet",
	Long: `batch analyzes registered media that has no description yet, oldest first,
one item at a time. LM Studio is health-checked once before the batch starts.
Failed items are reported and the batch continues.`,
	Args: cobra.NoArgs,
	Run:  runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchLimitFlag, "limit", "n", 0, "Maximum items to analyze (default from config, 10)")
	batchCmd.Flags().StringVarP(&batchStyleFlag, "style", "s", "", "Analysis style (custom is not available in batch)")
	batchCmd.Flags().BoolVar(&batchNoRenameFlag, "no-rename", false, "Do not rename files")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	style, err := resolveStyle(cfg, batchStyleFlag, "")
	if err != nil {
		cli.HandleAnalysisError(err)
	}
	limit := batchLimitFlag
	if limit <= 0 {
		limit = cfg.BatchLimit
	}

	st := mustOpenStore(ctx, "gallery batch")
	client := cli.NewClient(cfg)
	orch := analysis.New(st, client, analysis.Options{
		TempDir:    cfg.TempDir(),
		AutoRename: cfg.AutoRename && !batchNoRenameFlag,
	})

	out := cmd.OutOrStdout()
	summary, err := orch.AnalyzeBatch(ctx, analysis.BatchOptions{
		Limit: limit,
		Style: style,
		OnItem: func(n, total int, o *analysis.Outcome) {
			status := "ok"
			switch {
			case !o.Success:
				status = "FAILED: " + o.Error
			case o.Rename != nil && o.Rename.Performed:
				status = "renamed to " + o.Rename.FinalName
			case o.Salvaged:
				status = "ok (unstructured answer)"
			}
			fmt.Fprintf(out, "[%d/%d] %s: %s\n", n, total, o.Path, status)
		},
	})
	if err != nil && summary == nil {
		cli.HandleAnalysisError(err)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Batch stopped early")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.Banner("Batch summary"))
	fmt.Fprintf(out, "Total: %d\n", summary.Total)
	fmt.Fprintf(out, "Analyzed: %d\n", summary.Analyzed)
	fmt.Fprintf(out, "Renamed: %d\n", summary.Renamed)
	fmt.Fprintf(out, "Failed: %d\n", summary.Failed)
	fmt.Fprintf(out, "Time: %s\n", cli.FormatDurationShort(summary.Duration))
	for _, f := range summary.Failures {
		fmt.Fprintf(out, "  - %s: %s\n", f.Path, f.Error)
	}
}
