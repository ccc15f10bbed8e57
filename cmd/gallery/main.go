// Command gallery analyzes a local photo and video collection with a vision
// model served by LM Studio. It stores a description and tags for each item
// and can rename files to the model's suggested filename.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fpang/ai-gallery/internal/config"
	"github.com/fpang/ai-gallery/internal/logging"
	"github.com/fpang/ai-gallery/internal/metrics"
	"github.com/fpang/ai-gallery/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Persistent flags
var (
	configFlag      string
	urlFlag         string
	modelFlag       string
	dataDirFlag     string
	storeFlag       string
	emitMetricsFlag bool
)

// cfg is the effective configuration, loaded in PersistentPreRunE.
var cfg *config.Config

// startedAt marks the beginning of command setup for the startup log.
var startedAt time.Time

var rootCmd = &cobra.Command{
	Use:   "gallery",
	Short: "AI descriptions, tags and filenames for your photos",
	Long: `gallery sends photos and video frames to a vision model running in LM Studio
and records what it sees: a description, a handful of tags and a suggested
filename. Files can be renamed to the suggestion automatically.

Examples:
  gallery health
  gallery scan ~/Pictures/2024
  gallery analyze ~/Pictures/2024/IMG_0042.jpg --style artistic
  gallery analyze 3f2a... --style custom --prompt "List every animal you see"
  gallery batch --limit 25
  gallery list --unanalyzed
  gallery watch ~/Pictures/Inbox --analyze
  gallery config init`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Config file (default $GALLERY_CONFIG or <data-dir>/gallery.yaml)")
	pf.StringVar(&urlFlag, "url", "", "LM Studio base URL (overrides LM_STUDIO_URL)")
	pf.StringVarP(&modelFlag, "model", "m", "", "Vision model name (overrides LM_STUDIO_MODEL)")
	pf.StringVar(&dataDirFlag, "data-dir", "", "Data directory for the media store and temp frames (overrides DATA_DIR)")
	pf.StringVar(&storeFlag, "store", "", "Media store backend: file or dynamodb (overrides GALLERY_STORE)")
	pf.BoolVar(&emitMetricsFlag, "emit-metrics", false, "Write CloudWatch EMF metric lines to stdout")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup initializes logging and loads configuration for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	startedAt = time.Now()
	logging.Init()

	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, loaded)
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	if emitMetricsFlag {
		metrics.SetOutput(os.Stdout)
	}

	log.Debug().Str("config", path).Msg("Configuration loaded")
	return nil
}

// applyFlagOverrides copies explicitly set persistent flags over the config.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		c.LMStudioURL = urlFlag
	}
	if flags.Changed("model") {
		c.Model = modelFlag
	}
	if flags.Changed("data-dir") {
		c.DataDir = dataDirFlag
	}
	if flags.Changed("store") {
		c.Store = storeFlag
	}
}

// openStore opens the configured media store.
func openStore(ctx context.Context, c *config.Config) (store.MediaStore, string, error) {
	switch c.Store {
	case config.StoreDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load AWS config: %w", err)
		}
		log.Debug().Str("region", awsCfg.Region).Str("table", c.DynamoTable).Msg("AWS config loaded")
		return store.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), c.DynamoTable), c.DynamoTable, nil
	default:
		fs, err := store.OpenFileStore(c.MediaStorePath())
		if err != nil {
			return nil, "", err
		}
		return fs, fs.Path(), nil
	}
}

// mustOpenStore opens the media store and emits the startup log for name.
func mustOpenStore(ctx context.Context, name string) store.MediaStore {
	st, location, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("Failed to open media store")
	}
	startupLog(name).Store(cfg.Store, location).Log()
	return st
}

// startupLog starts the startup summary shared by every command.
func startupLog(name string) *logging.StartupLogger {
	return logging.NewStartupLogger(name).
		Version(version).
		Endpoint("lmStudio", cfg.LMStudioURL).
		Feature("autoRename", cfg.AutoRename).
		Feature("metrics", emitMetricsFlag).
		Config("model", cfg.Model).
		Config("dataDir", cfg.DataDir).
		InitDuration(time.Since(startedAt))
}
