package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MikeSquared-Agency/autosocio/internal/config"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "autosocio",
	Short:         "Intent interpretation, matchmaking and orchestration over hosted LLMs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	orchestrateCmd.Flags().StringVar(&stateFile, "state", "", "JSON file with the application state")
	auditCmd.Flags().StringVar(&snapshotFile, "snapshot", "", "JSON file with the application snapshot")
	auditCmd.Flags().BoolVar(&enrich, "enrich", false, "Enrich the findings after the audit")
	partsCmd.Flags().StringVar(&partsFile, "parts", "", "JSON file with the candidate parts")
	chatCmd.Flags().StringVar(&agentID, "agent", "", "Catalog id of the agent to talk to")
	chatCmd.Flags().StringVar(&historyFile, "history", "", "JSON file with earlier turns")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(partsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds a JSON production logger writing to stderr so one-shot
// commands keep stdout for their result.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
