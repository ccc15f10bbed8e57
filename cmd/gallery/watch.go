package main

import (
	"fmt"

	"github.com/fpang/ai-gallery/internal/analysis"
	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/fpang/ai-gallery/internal/filehandler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Watch flags
var (
	watchAnalyzeFlag bool
	watchStyleFlag   string
	watchSettleFlag  = filehandler.DefaultSettle
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Register new photos as they appear, optionally analyzing them",
	Args:  cobra.MaximumNArgs(1),
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchAnalyzeFlag, "analyze", false, "Analyze each new file after registering it")
	watchCmd.Flags().StringVarP(&watchStyleFlag, "style", "s", "", "Analysis style for --analyze")
	watchCmd.Flags().DurationVar(&watchSettleFlag, "settle", filehandler.DefaultSettle, "Quiet period before a new file is picked up")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	dirPath := cfg.PhotosDir
	if len(args) == 1 {
		dirPath = args[0]
	}
	dirPath = cli.ValidateAndResolveDirectory(dirPath)

	st := mustOpenStore(ctx, "gallery watch")

	var orch *analysis.Orchestrator
	var analyzeReq analysis.Request
	if watchAnalyzeFlag {
		style, err := resolveStyle(cfg, watchStyleFlag, "")
		if err != nil {
			cli.HandleAnalysisError(err)
		}
		client := cli.NewClient(cfg)
		cli.RequireHealthy(ctx, client)
		orch = analysis.New(st, client, analysis.Options{
			TempDir:    cfg.TempDir(),
			AutoRename: cfg.AutoRename,
		})
		analyzeReq.Style = style
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s for new media (Ctrl+C to stop)...\n", dirPath)

	err := filehandler.Watch(ctx, dirPath, filehandler.WatchOptions{Settle: watchSettleFlag}, func(mf *filehandler.MediaFile) {
		if mf.Kind == filehandler.KindImage {
			if meta, err := filehandler.ExtractImageMetadata(mf.Path); err == nil {
				mf.Metadata = meta
			}
		}
		m, created, err := analysis.Register(ctx, st, mf)
		if err != nil {
			log.Error().Err(err).Str("path", mf.Path).Msg("Failed to register media")
			return
		}
		if !created {
			return
		}
		fmt.Fprintf(out, "+ %s\n", m.Path)

		if orch == nil {
			return
		}
		req := analyzeReq
		req.MediaID = m.ID
		o, err := orch.Analyze(ctx, req)
		if err != nil {
			fmt.Fprintf(out, "  analysis failed: %s\n", cli.DescribeError(err))
			return
		}
		fmt.Fprintf(out, "  %s\n  %s\n", o.Result.Description, cli.FormatTags(o.Result.Tags))
		if o.Rename != nil && o.Rename.Performed {
			fmt.Fprintf(out, "  renamed to %s\n", o.Rename.FinalName)
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Watch failed")
	}
}
