package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/camoslabs/camosai/internal/logging"
	"github.com/camoslabs/camosai/internal/rag"
	"github.com/camoslabs/camosai/internal/server"
	"github.com/camoslabs/camosai/internal/session"
	"github.com/camoslabs/camosai/internal/store"
)

// NewServeCmd constructs the `camosai serve` command, which starts the HTTP
// server exposing the assistant API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Camos AI HTTP server",
		Long: `Start the Camos AI HTTP server on localhost.

The server exposes a JSON REST API: login and sessions, the chat and debug
endpoints, the FAQ and pending-question board, an on-demand ingestion
trigger, plus health, readiness, and Prometheus metrics endpoints.

With --watch, the configured pdf_data_dir is watched for changes; a changed
corpus marks the index stale in /api/ready until the next ingestion run.

Examples:
  camosai serve
  camosai serve --port 9090 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			cfg, prompts, err := loadSettings()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			p, vstore, err := buildPipeline(ctx, cfg, prompts, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer vstore.Close()

			ing, err := buildIngestor(cfg, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			board, err := store.Open(cfg.FAQDBPath)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer board.Close()
			log.Info("faq board opened", slog.String("path", cfg.FAQDBPath))

			pingers := []server.Pinger{
				server.NewOllamaPinger(cfg.OllamaBaseURL),
				server.NewNamedPinger("board", board.Ping),
			}
			if qs, ok := vstore.(*rag.QdrantStore); ok {
				pingers = append(pingers, server.NewNamedPinger("qdrant", qs.Ping))
			}

			srv, err := server.New(p, session.NewManager(), board, &server.Config{
				Host:      cfg.Server.Host,
				Port:      cfg.Server.Port,
				Logger:    log,
				Pingers:   pingers,
				RateLimit: cfg.Server.RateLimit,
				RateBurst: cfg.Server.RateBurst,
				IngestFunc: func(ctx context.Context) (int, error) {
					return runIngestion(ctx, cfg, ing, p, log)
				},
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			if watch {
				go func() {
					if err := server.WatchCorpus(ctx, cfg.PDFDataDir, p, log); err != nil {
						log.Warn("corpus watcher stopped", slog.Any("error", err))
					}
				}()
			}

			log.Info("serve starting",
				slog.String("backend", cfg.VectorBackend),
				slog.String("model", cfg.OllamaModelName),
				slog.Bool("index_ready", p.Ready()),
			)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch pdf_data_dir and flag the index stale on changes")

	return cmd
}
