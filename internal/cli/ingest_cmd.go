package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/mentorbridge-backend/internal/app"
	"github.com/yungbote/mentorbridge-backend/internal/modules/training/ingestion"
)

func newIngestCmd(opts *options) *cobra.Command {
	var req ingestion.Request
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk and index one module PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.ModuleID == "" || req.Path == "" {
				return errors.New("--module-id and --file are required")
			}
			if req.ModuleName == "" {
				req.ModuleName = req.ModuleID
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				res, err := a.Services.Ingestion.IngestPDF(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&req.ModuleID, "module-id", "", "module identifier, e.g. CM-101")
	cmd.Flags().StringVar(&req.ModuleName, "name", "", "module display name (defaults to the id)")
	cmd.Flags().StringVar(&req.Competency, "competency", "", "competency area")
	cmd.Flags().StringVar(&req.Path, "file", "", "path to the module PDF")
	return cmd
}

func newIngestAllCmd(opts *options) *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "ingest-all",
		Short: "Ingest every module listed in a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				path := manifestPath
				if path == "" {
					path = a.Cfg.Server.Manifest
				}
				if path == "" {
					return errors.New("no manifest: pass --manifest or set server.manifest")
				}
				m, err := ingestion.ReadManifest(path)
				if err != nil {
					return err
				}
				report, err := a.Services.Ingestion.IngestManifest(ctx, m)
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
				if err != nil {
					return fmt.Errorf("%d of %d modules failed: %w", report.Failed, len(m.Modules), err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "manifest YAML (defaults to server.manifest)")
	return cmd
}
