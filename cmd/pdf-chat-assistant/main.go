// Command pdf-chat-assistant ingests a PDF document and answers questions
// about it from an interactive prompt.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Seif-aber/pdf-chat-assistant/chains"
	"github.com/Seif-aber/pdf-chat-assistant/config"
	"github.com/Seif-aber/pdf-chat-assistant/documentloaders"
	"github.com/Seif-aber/pdf-chat-assistant/embeddings"
	embgemini "github.com/Seif-aber/pdf-chat-assistant/embeddings/gemini"
	embollama "github.com/Seif-aber/pdf-chat-assistant/embeddings/ollama"
	llmgemini "github.com/Seif-aber/pdf-chat-assistant/llms/gemini"
	"github.com/Seif-aber/pdf-chat-assistant/textsplitter"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores/local"
	"github.com/Seif-aber/pdf-chat-assistant/vectorstores/qdrant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: %s [flags] <document.pdf>", os.Args[0])
	}
	pdfPath := flag.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	splitter, err := textsplitter.NewCharacterSplitter(
		textsplitter.WithChunkSize(cfg.Chunking.Size),
		textsplitter.WithChunkOverlap(cfg.Chunking.Overlap),
	)
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	llm, err := llmgemini.New(ctx,
		llmgemini.WithModel(cfg.Generation.Model),
		llmgemini.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	qa, err := chains.NewDocumentQA(splitter, embedder, store, llm,
		chains.WithTopK(cfg.Retrieval.TopK),
		chains.WithTemperature(cfg.Generation.Temperature),
		chains.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	loader := documentloaders.NewPDFLoader(pdfPath, documentloaders.WithLogger(logger))
	doc, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", pdfPath, err)
	}

	fmt.Printf("Ingesting %s (%v pages)...\n", pdfPath, doc.Metadata["page_count"])
	if err := qa.Ingest(ctx, doc.PageContent); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	fmt.Printf("Ready: %d chunks indexed. Ask a question, or type 'exit'.\n\n", qa.ChunkCount())

	return chatLoop(ctx, qa, cfg)
}

func buildEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, error) {
	var backend embeddings.Embedder
	var err error

	switch cfg.Embedding.Provider {
	case "ollama":
		backend, err = embollama.New(
			embollama.WithModel(cfg.Embedding.Model),
			embollama.WithTimeout(cfg.Generation.Timeout()),
		)
	default:
		backend, err = embgemini.New(ctx,
			embgemini.WithModel(cfg.Embedding.Model),
			embgemini.WithLogger(logger),
		)
	}
	if err != nil {
		return nil, err
	}

	return embeddings.NewEmbedder(backend, embeddings.WithBatchSize(cfg.Embedding.BatchSize))
}

func buildStore(cfg *config.Config, logger *slog.Logger) (vectorstores.VectorStore, error) {
	if cfg.Storage.Backend == "qdrant" {
		opts := []qdrant.Option{
			qdrant.WithHostAndPort(cfg.Storage.Qdrant.Host, cfg.Storage.Qdrant.Port),
			qdrant.WithLogger(logger),
		}
		if cfg.Storage.Qdrant.Collection != "" {
			opts = append(opts, qdrant.WithCollectionName(cfg.Storage.Qdrant.Collection))
		}
		if cfg.Storage.Qdrant.APIKey != "" {
			opts = append(opts, qdrant.WithAPIKey(cfg.Storage.Qdrant.APIKey), qdrant.WithTLS(cfg.Storage.Qdrant.UseTLS))
		}
		return qdrant.New(opts...)
	}
	return local.New(cfg.Storage.Dir, local.WithLogger(logger))
}

func chatLoop(ctx context.Context, qa *chains.DocumentQA, cfg *config.Config) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Generation.Timeout())
		_, err := qa.StreamAnswer(callCtx, query, func(_ context.Context, chunk []byte) error {
			fmt.Print(string(chunk))
			return nil
		})
		cancel()
		fmt.Println()

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		fmt.Println()
	}
	return scanner.Err()
}
