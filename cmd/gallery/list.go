package main

import (
	"fmt"
	"io"

	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/fpang/ai-gallery/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var unanalyzedFlag bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List media in the store",
	Args:  cobra.NoArgs,
	Run:   runList,
}

func init() {
	listCmd.Flags().BoolVarP(&unanalyzedFlag, "unanalyzed", "u", false, "Only media without a description")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	st := mustOpenStore(ctx, "gallery list")

	var (
		items []*store.Media
		err   error
	)
	if unanalyzedFlag {
		items, err = st.ListUnanalyzed(ctx, 0)
	} else {
		items, err = st.ListMedia(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list media")
	}
	printMedia(cmd.OutOrStdout(), items)
}

func printMedia(w io.Writer, items []*store.Media) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No media. Run 'gallery scan <directory>' first.")
		return
	}
	for _, m := range items {
		icon := "📷"
		if m.IsVideo() {
			icon = "🎬"
		}
		fmt.Fprintf(w, "%s %s  %s\n", icon, m.ID, m.Path)
		if m.Analyzed {
			fmt.Fprintf(w, "    %s\n", m.Description)
			fmt.Fprintf(w, "    %s\n", cli.FormatTags(m.Tags))
		}
	}
	fmt.Fprintf(w, "\n%d item(s)\n", len(items))
}
