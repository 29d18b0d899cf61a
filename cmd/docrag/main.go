// Command docrag ingests documents into a vector index and answers
// questions over them using parent-child retrieval.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/nevindra/docrag"
	"github.com/nevindra/docrag/ingest"
	"github.com/nevindra/docrag/ingest/html"
	"github.com/nevindra/docrag/ingest/markdown"
	"github.com/nevindra/docrag/ingest/pdf"
	"github.com/nevindra/docrag/internal/config"
	"github.com/nevindra/docrag/observer"
	"github.com/nevindra/docrag/provider/openaicompat"
	"github.com/nevindra/docrag/store/postgres"
	"github.com/nevindra/docrag/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	index    docrag.VectorIndex
	llm      docrag.Provider
	cleanup  []func()
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "docrag",
		Short:         "Document ingestion and retrieval for RAG pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default docrag.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIngestCmd(&cfgPath, &verbose),
		newRetrieveCmd(&cfgPath, &verbose),
		newQueryCmd(&cfgPath, &verbose),
	)
	return root
}

// setup loads config and wires the index and providers. The caller must
// invoke close() when done.
func setup(ctx context.Context, cfgPath string, verbose bool) (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	a := &app{cfg: cfg, logger: logger}

	embedding := openaicompat.NewEmbedding(
		cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL,
		cfg.Embedding.Dimensions,
		openaicompat.WithLogger(logger),
	)
	a.llm = openaicompat.NewProvider(
		cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL,
		openaicompat.WithLogger(logger),
	)

	switch cfg.Index.Driver {
	case "sqlite":
		idx, err := sqlite.New(cfg.Index.Path, embedding,
			sqlite.WithTable(cfg.Index.Table),
			sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite index: %w", err)
		}
		a.cleanup = append(a.cleanup, func() { _ = idx.Close() })
		if err := idx.Init(ctx); err != nil {
			a.close()
			return nil, nil, err
		}
		a.index = idx
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Index.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres index: %w", err)
		}
		a.cleanup = append(a.cleanup, pool.Close)
		idx, err := postgres.New(pool, embedding,
			postgres.WithTable(cfg.Index.Table),
			postgres.WithLogger(logger))
		if err != nil {
			a.close()
			return nil, nil, err
		}
		if err := idx.Init(ctx); err != nil {
			a.close()
			return nil, nil, err
		}
		a.index = idx
	default:
		return nil, nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}

	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			a.close()
			return nil, nil, fmt.Errorf("init observer: %w", err)
		}
		a.shutdown = shutdown
		a.index = observer.WrapIndex(a.index, cfg.Index.Driver, inst)
	}

	return a, a.close, nil
}

func (a *app) close() {
	if a.shutdown != nil {
		_ = a.shutdown(context.Background())
	}
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func (a *app) pipeline(parents docrag.ParentStore) *ingest.Pipeline {
	opts := []ingest.PipelineOption{
		ingest.WithExtractor("pdf", pdf.NewExtractor()),
		ingest.WithExtractor("html", html.NewExtractor()),
		ingest.WithExtractor("htm", html.NewExtractor()),
		ingest.WithExtractor("md", markdown.NewExtractor()),
		ingest.WithLogger(a.logger),
	}
	if a.cfg.Ingest.BatchSize > 0 {
		opts = append(opts, ingest.WithBatchSize(a.cfg.Ingest.BatchSize))
	}
	if a.cfg.Ingest.Parallelism > 0 {
		opts = append(opts, ingest.WithParallelism(a.cfg.Ingest.Parallelism))
	}
	if len(a.cfg.Ingest.KnowledgeBases) > 0 {
		opts = append(opts, ingest.WithKnowledgeBases(a.cfg.Ingest.KnowledgeBases...))
	}
	topics := ingest.NewTopicClassifier(a.llm)
	return ingest.NewPipeline(a.index, parents, topics, opts...)
}

func newIngestCmd(cfgPath *string, verbose *bool) *cobra.Command {
	var (
		hierarchical bool
		query        string
	)

	cmd := &cobra.Command{
		Use:   "ingest <source>...",
		Short: "Ingest files or URLs into the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := setup(cmd.Context(), *cfgPath, *verbose)
			if err != nil {
				return err
			}
			defer done()

			parents := docrag.NewMemoryParentStore()
			p := a.pipeline(parents)

			var results []ingest.Result
			if hierarchical {
				results, err = p.IngestAllHierarchical(cmd.Context(), args)
			} else {
				results, err = p.IngestAll(cmd.Context(), args)
			}
			for _, r := range results {
				fmt.Printf("%s: topic=%s chunks=%d (extract %s, chunk %s, write %s)\n",
					r.Source, r.Topic, r.ChunkCount,
					r.Timing.Extract, r.Timing.Chunk, r.Timing.Write)
			}
			if err != nil {
				return err
			}

			// Parent documents live in memory, so parent/child retrieval
			// only makes sense in the same run that ingested them.
			if hierarchical && query != "" {
				retriever := docrag.NewParentChildRetriever(a.index, parents,
					docrag.WithRetrieverLogger(a.logger))
				docs, err := retriever.Retrieve(cmd.Context(), query)
				if err != nil {
					return err
				}
				fmt.Printf("%d parent documents for %q:\n", len(docs), query)
				for _, d := range docs {
					fmt.Printf("--- page %s ---\n%s\n", d.Metadata.String(docrag.MetaPage), d.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hierarchical, "hierarchical", false, "store parent pages and index child chunks")
	cmd.Flags().StringVar(&query, "query", "", "after hierarchical ingestion, retrieve matching parent documents")
	return cmd
}

func newRetrieveCmd(cfgPath *string, verbose *bool) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Search the index and print matching chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := setup(cmd.Context(), *cfgPath, *verbose)
			if err != nil {
				return err
			}
			defer done()

			results, err := a.index.SimilaritySearch(cmd.Context(), docrag.SearchRequest{
				Query: args[0],
				TopK:  topK,
			})
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("[%.3f] %s\n", r.Score, r.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "number of chunks to return")
	return cmd
}

func newQueryCmd(cfgPath *string, verbose *bool) *cobra.Command {
	var (
		topK      int
		threshold float32
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question grounded in the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, done, err := setup(cmd.Context(), *cfgPath, *verbose)
			if err != nil {
				return err
			}
			defer done()

			answerer := docrag.NewAnswerer(a.index, a.llm,
				docrag.WithAnswerTopK(topK),
				docrag.WithAnswerThreshold(threshold),
				docrag.WithAnswerLogger(a.logger))
			answer, err := answerer.Answer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 3, "number of chunks to ground the answer on")
	cmd.Flags().Float32Var(&threshold, "threshold", 0.6, "minimum similarity score")
	return cmd
}
