package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/ai-gallery/internal/analysis"
	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/fpang/ai-gallery/internal/filehandler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Scan flags
var (
	scanMaxDepthFlag    int
	scanLimitFlag       int
	scanInteractiveFlag bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Register photos and videos from a directory",
	Long: `scan walks a directory (recursively by default) and registers every supported
image and video in the media store. Files already registered are skipped, so
scan can be re-run after adding photos. EXIF capture date and camera are
recorded for images.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanMaxDepthFlag, "max-depth", 0, "Maximum recursion depth (0 = unlimited)")
	scanCmd.Flags().IntVar(&scanLimitFlag, "limit", 0, "Maximum media files to register (0 = unlimited)")
	scanCmd.Flags().BoolVarP(&scanInteractiveFlag, "interactive", "i", false, "Prompt for the directory")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	dirPath := cfg.PhotosDir
	if len(args) == 1 {
		dirPath = args[0]
	} else if scanInteractiveFlag {
		dirPath = cli.PromptForDirectory(os.Stdin, cmd.OutOrStdout(), cfg.PhotosDir)
	}
	dirPath = cli.ValidateAndResolveDirectory(dirPath)

	st := mustOpenStore(ctx, "gallery scan")

	files, err := filehandler.ScanDirectory(dirPath, filehandler.ScanOptions{
		MaxDepth: scanMaxDepthFlag,
		Limit:    scanLimitFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to scan directory")
	}
	if err := filehandler.LoadMetadata(ctx, files); err != nil {
		log.Fatal().Err(err).Msg("Metadata extraction cancelled")
	}

	var added, known, failed, images, videos int
	for _, f := range files {
		if f.Kind == filehandler.KindVideo {
			videos++
		} else {
			images++
		}
		_, created, err := analysis.Register(ctx, st, f)
		switch {
		case err != nil:
			failed++
			log.Error().Err(err).Str("path", f.Path).Msg("Failed to register media")
		case created:
			added++
		default:
			known++
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.Banner("Scan complete"))
	fmt.Fprintf(out, "Directory: %s\n", dirPath)
	fmt.Fprintf(out, "Images found: %d\n", images)
	fmt.Fprintf(out, "Videos found: %d\n", videos)
	if scanLimitFlag > 0 && len(files) == scanLimitFlag {
		fmt.Fprintf(out, "(limited to %d)\n", scanLimitFlag)
	}
	fmt.Fprintf(out, "Newly registered: %d\n", added)
	fmt.Fprintf(out, "Already known: %d\n", known)
	if failed > 0 {
		fmt.Fprintf(out, "Failed: %d\n", failed)
	}
	for _, f := range files {
		if f.Metadata == nil {
			continue
		}
		rel, err := filepath.Rel(dirPath, f.Path)
		if err != nil {
			rel = filepath.Base(f.Path)
		}
		log.Debug().
			Str("file", rel).
			Bool("hasDate", f.Metadata.HasDate).
			Str("camera", f.Metadata.Camera()).
			Msg("EXIF metadata")
	}
}
