// Command ingest loads reference PDFs into the knowledge base, deletes them
// again, and reports what is stored.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/ymatsuzawa/nenchobot/internal/config"
	"github.com/ymatsuzawa/nenchobot/internal/db"
	"github.com/ymatsuzawa/nenchobot/internal/ingest"
	"github.com/ymatsuzawa/nenchobot/internal/llm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Manage the nenchobot knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newUploadCmd(), newDeleteCmd(), newStatsCmd())
	return root
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <pdf-path> [year]",
		Short: "Chunk, embed and store a reference PDF",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closeStore, err := buildPipeline()
			if err != nil {
				return err
			}
			defer closeStore()

			year := ""
			if len(args) > 1 {
				year = args[1]
			}

			report, err := pipeline.IngestPDF(cmd.Context(), args[0], year)
			if err != nil {
				return err
			}

			fmt.Printf("Uploaded %s (%d pages)\n", report.Document.Name, report.Document.TotalPages)
			fmt.Printf("Saved chunks: %d/%d\n", report.SavedCount, report.TotalChunks)
			if report.SavedCount < report.TotalChunks {
				fmt.Println("Warning: some chunks failed and were skipped; the document is partially ingested.")
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pdf-name>",
		Short: "Remove every stored chunk of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closeStore, err := buildPipeline()
			if err != nil {
				return err
			}
			defer closeStore()

			count, err := pipeline.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d chunks of %s\n", count, args[0])
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored documents and chunk counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, closeStore, err := buildPipeline()
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := pipeline.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if len(stats) == 0 {
				fmt.Println("Knowledge base is empty. Upload a PDF first.")
				return nil
			}

			total := 0
			for _, s := range stats {
				year := s.Document.Year
				if year == "" {
					year = "不明"
				}
				fmt.Printf("  - %s (%s): %d chunks, %d pages\n", s.Document.Name, year, s.ChunkCount, s.Document.TotalPages)
				total += s.ChunkCount
			}
			fmt.Printf("Total chunks: %d\n", total)
			return nil
		},
	}
}

// buildPipeline wires the ingestion pipeline against Postgres. Ingestion has
// no SQLite fallback: the knowledge base requires pgvector.
func buildPipeline() (*ingest.Pipeline, func(), error) {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for ingestion")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is required for ingestion")
	}

	pg, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmClient := llm.NewOpenAIClient(cfg.OpenAIEndpoint, cfg.OpenAIEmbeddingEndpoint, cfg.OpenAIAPIKey, cfg.Model, cfg.EmbeddingModel)

	pipeline, err := ingest.NewPipeline(llmClient, pg, pg, logger)
	if err != nil {
		pg.Close()
		return nil, nil, err
	}

	return pipeline, func() { pg.Close() }, nil
}
