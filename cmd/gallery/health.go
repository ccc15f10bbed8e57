package main

import (
	"fmt"

	"github.com/fpang/ai-gallery/internal/cli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that LM Studio is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := cli.NewClient(cfg)
	startupLog("gallery health").Log()

	ok, msg := client.CheckHealth(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, model %s)\n", msg, client.BaseURL(), client.Model())
	if !ok {
		log.Debug().Str("url", client.BaseURL()).Msg("Health check failed")
		return fmt.Errorf("LM Studio is not healthy")
	}
	return nil
}
