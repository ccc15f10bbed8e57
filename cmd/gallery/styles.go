package main

import (
	"fmt"

	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/fpang/ai-gallery/internal/styles"
	"github.com/spf13/cobra"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the available analysis styles",
	Args:  cobra.NoArgs,
	Run:   runStyles,
}

func init() {
	rootCmd.AddCommand(stylesCmd)
}

func runStyles(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.Banner("Analysis styles"))
	for _, s := range styles.List() {
		marker := " "
		if s.Key == cfg.DefaultStyle {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-9s %-16s %s\n", marker, s.Key, s.Name, s.Description)
	}
	fmt.Fprintln(out, "\n* default style. Use --style custom --prompt \"...\" for your own prompt.")
}
