package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/blindsight-ai/blindsight"
	"github.com/blindsight-ai/blindsight/ai"
	"github.com/blindsight-ai/blindsight/ai/openai"
	"github.com/blindsight-ai/blindsight/core"
	"github.com/blindsight-ai/blindsight/ingestion"
	"github.com/blindsight-ai/blindsight/reembed"
	"github.com/blindsight-ai/blindsight/storage/badger"
	"github.com/blindsight-ai/blindsight/workflow"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "blindsight",
		Usage: "Company review analysis over hybrid retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Ingest a review feed (JSON array of records) into the document store",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "feed",
						Aliases: []string{"f"},
						Usage:   "Path to the review feed JSON file, or - for stdin",
						Value:   "-",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Embedding worker pool size",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents embedded per batch",
					},
				},
			},
			{
				Name:   "analyze",
				Usage:  "Run the full stage analysis for a company",
				Action: analyzeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "company",
						Aliases:  []string{"c"},
						Usage:    "Company to analyze",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Question to answer about the company",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "Path to the engine configuration YAML file",
					},
					&cli.StringFlag{
						Name:  "stages",
						Usage: "Comma-separated subset of stages to run",
					},
					&cli.StringFlag{
						Name:  "context",
						Usage: "Additional free-form context for the analysis",
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.StringFlag{
						Name:  "generator-model",
						Usage: "Generator model name",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed stored documents with a new embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "company",
						Usage: "Restrict the run to one company's documents",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func ingestCommand(c *cli.Context) error {
	records, err := readFeed(c.String("feed"))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("feed contains no records")
	}

	system, err := blindsight.Open(c.String("db"),
		blindsight.WithAIConfig(aiConfigFromFlags(c)))
	if err != nil {
		return fmt.Errorf("failed to open system: %w", err)
	}
	defer system.Close()

	var pipelineOpts []ingestion.Option
	if size := c.Int("pool-size"); size > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(size))
	}
	if size := c.Int("batch-size"); size > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithBatchSize(size))
	}

	pipeline, err := system.NewIngestionPipeline(pipelineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	added, err := pipeline.Ingest(c.Context, records...)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	pipeline.Wait()

	fmt.Fprintf(os.Stderr, "Ingested %d documents from %d feed records\n", added, len(records))
	return nil
}

func analyzeCommand(c *cli.Context) error {
	engineConfig := workflow.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		engineConfig, err = workflow.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load engine config: %w", err)
		}
	}

	system, err := blindsight.Open(c.String("db"),
		blindsight.WithAIConfig(aiConfigFromFlags(c)),
		blindsight.WithEngineConfig(engineConfig))
	if err != nil {
		return fmt.Errorf("failed to open system: %w", err)
	}
	defer system.Close()

	engine, err := system.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Release()

	req := workflow.AnalysisRequest{
		Company:     c.String("company"),
		Query:       c.String("query"),
		UserContext: c.String("context"),
		Stages:      parseStages(c.String("stages")),
	}

	report, err := engine.Analyze(c.Context, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	fmt.Fprintf(os.Stderr, "Status: %s, results: %d, errors: %d\n",
		report.Status.String(), len(report.Results), len(report.Errors))
	return nil
}

func reembedCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	repo := badger.NewDocumentRepository(backend)
	defer repo.Close()

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if company := c.String("company"); company != "" {
		config.Filters = map[string]string{core.MetaCompany: company}
	}

	reembedder := reembed.NewReembedder(repo, embedder, config, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}
	return nil
}

// readFeed parses a JSON array of review records from a file or stdin.
func readFeed(path string) ([]*core.ReviewRecord, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open feed: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var records []*core.ReviewRecord
	if err := json.NewDecoder(reader).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return records, nil
}

func parseStages(list string) []core.StageName {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	stages := make([]core.StageName, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			stages = append(stages, core.StageName(name))
		}
	}
	return stages
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{ai.WithHost(c.String("host"))}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithEmbeddingModel(model))
	}
	if model := c.String("generator-model"); model != "" {
		opts = append(opts, ai.WithGeneratorModel(model))
	}
	return ai.NewConfig(opts...)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
