package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/mentorbridge-backend/internal/app"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type options struct {
	configPath string
}

// NewRootCmd creates the top-level "mentorbridge" command.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "mentorbridge",
		Short:         "Teacher training matcher and RAG ingestion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newIngestCmd(opts),
		newIngestAllCmd(opts),
		newStatsCmd(opts),
		newMatchCmd(opts),
	)
	return root
}

func loadConfig(opts *options) (app.Config, *logger.Logger, error) {
	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return app.Config{}, nil, err
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// withApp builds the full service graph, runs fn, and tears everything down.
func withApp(ctx context.Context, opts *options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
