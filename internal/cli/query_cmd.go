package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/yungbote/mentorbridge-backend/internal/app"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/matcher"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print vector store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				st, err := a.Services.Ingestion.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newMatchCmd(opts *options) *cobra.Command {
	var (
		text       string
		competency string
		topK       int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Find the best module for an issue description",
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" {
				return errors.New("--text is required")
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				res := a.Services.Pipeline.Match(ctx, text, competency, topK)
				return printJSON(cmd.OutOrStdout(), struct {
					Matched bool `json:"matched"`
					matcher.Result
				}{res.Matched(), res})
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "issue description")
	cmd.Flags().StringVar(&competency, "competency", "", "restrict to one competency area")
	cmd.Flags().IntVar(&topK, "top-k", 0, "chunks to retrieve (defaults to matching.top_k)")
	return cmd
}
