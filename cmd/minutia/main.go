// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/minutia"
	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/chunking"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/httpapi"
	"github.com/poiesic/minutia/pipeline"
	"github.com/poiesic/minutia/reindex"
	"github.com/poiesic/minutia/vector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const defaultEnvFile = ".env"

func main() {
	if err := loadEnvFile(envFileArg(os.Args)); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "minutia",
		Usage:  "Meeting transcript analysis grounded in past meetings",
		Flags:  globalFlags(),
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Run the full pipeline on a transcript file",
				ArgsUsage: "FILE",
				Action:    analyzeCommand,
			},
			{
				Name:      "index",
				Usage:     "Chunk, embed and store a transcript file",
				ArgsUsage: "FILE",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "project",
						Usage: "Project the transcript belongs to",
						Value: core.DefaultProjectName,
					},
					&cli.StringFlag{
						Name:  "department",
						Usage: "Department the transcript belongs to",
						Value: core.DefaultDepartment,
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Meeting date as an ISO-8601 timestamp (defaults to now)",
					},
				},
			},
			{
				Name:   "retrieve",
				Usage:  "Print the context retrieved for a query",
				Action: retrieveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project",
						Usage:    "Project to search first",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "department",
						Usage:    "Department to prefer",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search text",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of context snippets",
						Value: core.DefaultTopK,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Usage:   "Port to listen on",
						EnvVars: []string{"PORT"},
						Value:   "3001",
					},
				},
			},
			{
				Name:      "batch",
				Usage:     "Analyze every .txt transcript in a directory",
				ArgsUsage: "DIR",
				Action:    batchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Directory for the <name>.insights.json files (defaults to DIR)",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every stored record with the current embedder",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to embed per call",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
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

func globalFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Environment file loaded before flags are read",
			Value: defaultEnvFile,
		},
		&cli.StringFlag{
			Name:    "provider",
			Usage:   "AI provider (azure, openai, simulated)",
			EnvVars: []string{"MINUTIA_PROVIDER"},
			Value:   string(ai.KindSimulated),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key of the AI provider",
			EnvVars: []string{"MINUTIA_API_KEY", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "chat-endpoint",
			Usage:   "Chat completion endpoint",
			EnvVars: []string{"AZURE_OPENAI_CHAT_ENDPOINT", "AZURE_OPENAI_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Chat model or Azure deployment",
			EnvVars: []string{"AZURE_OPENAI_CHAT_DEPLOYMENT"},
			Value:   defaults.ChatModel,
		},
		&cli.StringFlag{
			Name:    "embeddings-endpoint",
			Usage:   "Embedding endpoint (defaults to the chat endpoint)",
			EnvVars: []string{"AZURE_OPENAI_EMBEDDINGS_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "embeddings-model",
			Usage:   "Embedding model or Azure deployment",
			EnvVars: []string{"AZURE_OPENAI_EMBEDDINGS_DEPLOYMENT"},
			Value:   defaults.EmbeddingModel,
		},
		&cli.StringFlag{
			Name:    "api-version",
			Usage:   "Azure OpenAI API version",
			EnvVars: []string{"AZURE_OPENAI_API_VERSION"},
			Value:   defaults.APIVersion,
		},
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Vector store backend (chromem, badger, qdrant)",
			EnvVars: []string{"MINUTIA_STORE"},
			Value:   string(minutia.StoreChromem),
		},
		&cli.StringFlag{
			Name:    "store-path",
			Usage:   "Directory of the chromem or badger store (empty keeps it in memory)",
			EnvVars: []string{"MINUTIA_STORE_PATH"},
		},
		&cli.StringFlag{
			Name:    "index",
			Usage:   "Qdrant collection name",
			EnvVars: []string{"MINUTIA_INDEX"},
			Value:   minutia.DefaultIndexName,
		},
		&cli.StringFlag{
			Name:    "index-host",
			Usage:   "Qdrant address",
			EnvVars: []string{"MINUTIA_INDEX_HOST"},
		},
		&cli.StringFlag{
			Name:    "index-api-key",
			Usage:   "Qdrant API key",
			EnvVars: []string{"MINUTIA_INDEX_API_KEY"},
		},
		&cli.IntFlag{
			Name:    "index-dim",
			Usage:   "Vector dimension of the index",
			EnvVars: []string{"MINUTIA_INDEX_DIM"},
			Value:   1024,
		},
		&cli.StringFlag{
			Name:    "dim-policy",
			Usage:   "Dimension adaptation policy (truncate-pad, truncate-pad-normalize, strict)",
			EnvVars: []string{"MINUTIA_DIM_POLICY"},
			Value:   "truncate-pad",
		},
		&cli.IntFlag{
			Name:    "top-k",
			Usage:   "Context snippets retrieved per analysis",
			EnvVars: []string{"MINUTIA_TOP_K"},
			Value:   core.DefaultTopK,
		},
		&cli.StringFlag{
			Name:    "model-cache",
			Usage:   "Cache directory of the local fallback embedding model",
			EnvVars: []string{"MINUTIA_MODEL_CACHE"},
		},
	}
}

// envFileArg finds --env-file before flag parsing, since the file has to
// be loaded before EnvVars are resolved.
func envFileArg(args []string) (path string, explicit bool) {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "env-file" {
			continue
		}
		if hasValue {
			return value, true
		}
		if i+1 < len(args) {
			return args[i+1], true
		}
	}
	return defaultEnvFile, false
}

// loadEnvFile loads path without overriding the environment. A missing
// default file is ignored.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func aiConfig(c *cli.Context) (*ai.Config, error) {
	kind, err := ai.ParseKind(c.String("provider"))
	if err != nil {
		return nil, err
	}
	cfg := ai.NewConfig(
		ai.WithKind(kind),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithChatHost(c.String("chat-endpoint")),
		ai.WithEmbeddingHost(c.String("embeddings-endpoint")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingModel(c.String("embeddings-model")),
		ai.WithAPIVersion(c.String("api-version")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func storeConfig(c *cli.Context) (minutia.StoreConfig, error) {
	kind, err := minutia.ParseStoreKind(c.String("store"))
	if err != nil {
		return minutia.StoreConfig{}, err
	}
	return minutia.StoreConfig{
		Kind:   kind,
		Path:   c.String("store-path"),
		Index:  c.String("index"),
		Host:   c.String("index-host"),
		APIKey: c.String("index-api-key"),
		Dim:    c.Int("index-dim"),
	}, nil
}

func openEngine(ctx context.Context, c *cli.Context, extra ...minutia.Option) (*minutia.Engine, error) {
	aiCfg, err := aiConfig(c)
	if err != nil {
		return nil, err
	}
	storeCfg, err := storeConfig(c)
	if err != nil {
		return nil, err
	}
	policy, err := vector.PolicyByName(c.String("dim-policy"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	opts := append([]minutia.Option{
		minutia.WithAIConfig(aiCfg),
		minutia.WithStoreConfig(storeCfg),
		minutia.WithPolicy(policy),
		minutia.WithTopK(c.Int("top-k")),
		minutia.WithModelCache(c.String("model-cache")),
	}, extra...)

	engine, err := minutia.NewEngine(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return engine, nil
}

func readTranscript(c *cli.Context) (string, error) {
	path := c.Args().First()
	if path == "" {
		return "", fmt.Errorf("transcript file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzeCommand(c *cli.Context) error {
	ctx := c.Context

	transcript, err := readTranscript(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Analyze(ctx, transcript)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return writeJSON(c, result)
}

func indexCommand(c *cli.Context) error {
	ctx := c.Context

	transcript, err := readTranscript(c)
	if err != nil {
		return err
	}

	date := time.Now()
	if s := c.String("date"); s != "" {
		date, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", s, err)
		}
	}

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	chunks, err := engine.Indexer().IndexTranscript(ctx, transcript, chunking.Meta{
		ProjectName: c.String("project"),
		Department:  c.String("department"),
		Date:        date,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Indexed %d record(s) for project %s\n", chunks, c.String("project"))
	return nil
}

func retrieveCommand(c *cli.Context) error {
	ctx := c.Context

	q := core.RetrievalQuery{
		ProjectName: c.String("project"),
		Department:  c.String("department"),
		SearchQuery: c.String("query"),
		TopK:        c.Int("k"),
	}
	if err := core.ValidateQuery(q); err != nil {
		return err
	}

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	text, err := engine.Retriever().Retrieve(ctx, q)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if text == "" {
		fmt.Fprintln(c.App.ErrWriter, "No context found")
		return nil
	}
	fmt.Fprintln(c.App.Writer, text)
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	server, err := httpapi.NewServer(httpapi.Deps{
		Analyzer:  engine.Pipeline(),
		Indexer:   engine.Indexer(),
		Retriever: engine.Retriever(),
		Gatherer:  prometheus.DefaultGatherer,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + c.String("port"))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func batchCommand(c *cli.Context) error {
	ctx := c.Context

	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("transcript directory is required")
	}
	outDir := c.String("out")
	if outDir == "" {
		outDir = dir
	}

	items, err := batchItems(dir)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintf(c.App.ErrWriter, "No .txt transcripts found in %s\n", dir)
		return nil
	}

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.Pipeline().Batch(ctx, items)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", r.Name, r.Err)
			continue
		}
		if err := writeResultFile(filepath.Join(outDir, r.Name+".insights.json"), r.Result); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %d item(s)\n", r.Name, len(r.Result.Insights.ToDoList))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d transcripts failed", failed, len(results))
	}
	return nil
}

func batchItems(dir string) ([]pipeline.BatchItem, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}

	items := make([]pipeline.BatchItem, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		items = append(items, pipeline.BatchItem{
			Name:       strings.TrimSuffix(filepath.Base(path), ".txt"),
			Transcript: string(data),
		})
	}
	return items, nil
}

func writeResultFile(path string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := c.Context

	cfg := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxAttempts:    c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	reindexer, err := engine.NewReindexer(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Store: %s %s\n", c.String("store"), c.String("store-path"))
	fmt.Fprintf(c.App.ErrWriter, "Provider: %s\n", c.String("provider"))
	fmt.Fprintln(c.App.ErrWriter)

	stats, err := reindexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Reindexed %d record(s) in %d namespace(s) in %s\n",
		stats.Records, stats.Namespaces, stats.Elapsed.Round(time.Millisecond))
	return nil
}
