package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fpang/ai-gallery/internal/analysis"
	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/fpang/ai-gallery/internal/config"
	"github.com/fpang/ai-gallery/internal/rename"
	"github.com/fpang/ai-gallery/internal/styles"
	"github.com/spf13/cobra"
)

// Analyze flags
var (
	styleFlag    string
	promptFlag   string
	noRenameFlag bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <media-id|path>",
	Short: "Describe, tag and rename one photo or video",
	Long: `analyze sends one media item to the vision model. The argument is either a
file path (registered on first use) or the ID of a media item already in the
store. Videos are analyzed through a frame taken one second in.`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&styleFlag, "style", "s", "", "Analysis style (see 'gallery styles'); default from config")
	analyzeCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Prompt text for --style custom")
	analyzeCmd.Flags().BoolVar(&noRenameFlag, "no-rename", false, "Do not rename the file to the suggested filename")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	style, err := resolveStyle(cfg, styleFlag, promptFlag)
	if err != nil {
		cli.HandleAnalysisError(err)
	}

	st := mustOpenStore(ctx, "gallery analyze")
	client := cli.NewClient(cfg)
	cli.RequireHealthy(ctx, client)

	orch := analysis.New(st, client, analysis.Options{
		TempDir:    cfg.TempDir(),
		AutoRename: cfg.AutoRename,
	})

	out, err := orch.Analyze(ctx, requestFor(args[0], style, noRenameFlag))
	if err != nil {
		cli.HandleAnalysisError(err)
	}
	printOutcome(cmd.OutOrStdout(), out)
}

// resolveStyle picks the style from the flag, falling back to the configured default.
func resolveStyle(c *config.Config, key, prompt string) (styles.Style, error) {
	if key == "" {
		key = c.DefaultStyle
	}
	if prompt != "" && key != styles.KeyCustom {
		key = styles.KeyCustom
	}
	return styles.Resolve(key, prompt)
}

// requestFor treats an existing file as a path and anything else as a media ID.
func requestFor(arg string, style styles.Style, noRename bool) analysis.Request {
	req := analysis.Request{Style: style, NoRename: noRename}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		req.Path = arg
	} else {
		req.MediaID = arg
	}
	return req
}

func printOutcome(w io.Writer, out *analysis.Outcome) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.Banner("Analysis"))
	fmt.Fprintf(w, "Media ID: %s\n", out.MediaID)
	fmt.Fprintf(w, "File: %s\n", out.Path)
	fmt.Fprintf(w, "Time: %s\n", cli.FormatDurationShort(out.Duration))
	if out.Result == nil {
		return
	}
	fmt.Fprintln(w, "--------------------------------------------")
	fmt.Fprintf(w, "Description: %s\n", out.Result.Description)
	fmt.Fprintf(w, "Tags: %s\n", cli.FormatTags(out.Result.Tags))
	if out.Result.SuggestedFilename != "" {
		fmt.Fprintf(w, "Suggested filename: %s\n", out.Result.SuggestedFilename)
	}
	if out.Salvaged {
		fmt.Fprintln(w, "(the model did not return JSON; its answer was kept as the description)")
	}
	if out.Rename != nil {
		fmt.Fprintf(w, "Rename: %s\n", describeRename(out.Rename))
	}
}

func describeRename(o *rename.Outcome) string {
	switch o.Reason {
	case rename.Renamed:
		return "renamed to " + o.FinalName
	case rename.NotNeeded:
		return "already named " + o.FinalName
	case rename.CollisionExhausted:
		return "no free filename, kept " + o.FinalName
	case rename.FilesystemError:
		return fmt.Sprintf("failed (%v), kept %s", o.Err, o.FinalName)
	default:
		return o.Reason.String()
	}
}
