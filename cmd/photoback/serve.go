package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server exposing the backup stream and browse API.

Endpoints:
  GET /backup/stream                  start or join a backup run; progress
                                      streams as text lines for as long as
                                      the client stays connected
  GET /api/account                    served account and archive totals
  GET /api/mediaitems                 archived media items (paged JSON)
  GET /api/albums                     archived albums (paged JSON)
  GET /api/albums/{id}/mediaitems     one album's items (paged JSON)
  GET /healthz                        liveness check`,
	Example: `  photoback serve
  photoback serve --config /etc/photoback.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	a.log.InfoWithFields("starting photoback", map[string]interface{}{
		"account": a.user.Email,
		"addr":    a.cfg.Server.Addr,
	})

	if err := a.server.ListenAndServe(a.cfg.Server.Addr); err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
