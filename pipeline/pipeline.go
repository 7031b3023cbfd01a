package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/chunking"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/extraction"
	"github.com/poiesic/minutia/indexing"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/retrieval"
)

// Stage names a pipeline step.
type Stage string

const (
	StageExtractMetadata  Stage = "extract_metadata"
	StageEmbedAndStore    Stage = "embed_and_store_current"
	StageRetrieveContext  Stage = "retrieve_context"
	StageGenerateInsights Stage = "generate_insights"
	StageStoreInsights    Stage = "store_insights"
)

// outcomeOK labels successful runs in metrics.
const outcomeOK = "ok"

// Result is the outcome of one run.
type Result struct {
	Metadata       core.Metadata `json:"metadata"`
	Context        string        `json:"context"`
	Insights       core.Insights `json:"insights"`
	IndexedChunks  int           `json:"indexedChunks"`
	InsightRecords int           `json:"insightRecords"`
	Prompt         string        `json:"prompt"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	extractor    *extraction.Extractor
	indexer      *indexing.Indexer
	retriever    *retrieval.Retriever
	generator    ai.InsightsGenerator
	systemPrompt string
	topK         int
	poolSize     int
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(p *Pipeline) error {
		p.systemPrompt = prompt
		return nil
	}
}

// WithTopK sets the number of context matches requested per strategy.
// Default is core.DefaultTopK.
func WithTopK(k int) Option {
	return func(p *Pipeline) error {
		p.topK = k
		return nil
	}
}

// WithPoolSize sets the number of concurrent runs in Batch.
// Default is 4, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.poolSize = size
		return nil
	}
}

// WithClock sets the time source used to date indexed records.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// NewPipeline creates a pipeline from its stage components.
func NewPipeline(
	extractor *extraction.Extractor,
	indexer *indexing.Indexer,
	retriever *retrieval.Retriever,
	generator ai.InsightsGenerator,
	opts ...Option,
) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	p := &Pipeline{
		extractor:    extractor,
		indexer:      indexer,
		retriever:    retriever,
		generator:    generator,
		systemPrompt: DefaultSystemPrompt,
		topK:         core.DefaultTopK,
		poolSize:     4,
		now:          time.Now,
		logger:       slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run analyzes one transcript. Empty transcripts are rejected with
// core.ErrEmptyTranscript before any stage runs.
func (p *Pipeline) Run(ctx context.Context, transcript string) (*Result, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return nil, err
	}

	started := p.now().UTC()
	result := &Result{}
	p.logger.Info("starting pipeline run", "length", len(transcript))

	err := p.stage(ctx, StageExtractMetadata, func(ctx context.Context) error {
		result.Metadata = p.extractor.Extract(ctx, transcript)
		return nil
	})
	if err != nil {
		return nil, p.fail(err)
	}
	md := result.Metadata

	err = p.stage(ctx, StageEmbedAndStore, func(ctx context.Context) error {
		n, err := p.indexer.IndexTranscript(ctx, transcript, chunking.Meta{
			ProjectName: md.ProjectName,
			Department:  md.Department,
			Date:        started,
		})
		result.IndexedChunks = n
		return err
	})
	if err != nil {
		return nil, p.fail(err)
	}

	err = p.stage(ctx, StageRetrieveContext, func(ctx context.Context) error {
		text, err := p.retriever.Retrieve(ctx, core.RetrievalQuery{
			ProjectName: md.ProjectName,
			Department:  md.Department,
			SearchQuery: md.SearchString,
			TopK:        p.topK,
		})
		result.Context = text
		return err
	})
	if err != nil {
		return nil, p.fail(err)
	}

	result.Prompt = BuildPrompt(p.systemPrompt, md.ProjectName, result.Context, transcript)

	err = p.stage(ctx, StageGenerateInsights, func(ctx context.Context) error {
		insights, err := p.generator.GenerateInsights(ctx, transcript, result.Prompt)
		if err != nil {
			return err
		}
		result.Insights = *core.NormalizeInsights(insights)
		return nil
	})
	if err != nil {
		return nil, p.fail(err)
	}

	err = p.stage(ctx, StageStoreInsights, func(ctx context.Context) error {
		n, err := p.indexer.IndexTexts(ctx, result.Insights.Texts(),
			md.ProjectName, md.Department, insightsDate(started))
		result.InsightRecords = n
		return err
	})
	if err != nil {
		return nil, p.fail(err)
	}

	p.metrics.PipelineRun(outcomeOK)
	p.logger.Info("pipeline run complete",
		"project", md.ProjectName,
		"department", md.Department,
		"chunks", result.IndexedChunks,
		"items", len(result.Insights.ToDoList))
	return result, nil
}

// stage runs fn with timing and wraps its error.
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveStage(string(stage), time.Since(start))
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	p.logger.Debug("stage complete", "stage", stage, "elapsed", time.Since(start))
	return nil
}

func (p *Pipeline) fail(err error) error {
	if se, ok := err.(*StageError); ok {
		p.metrics.PipelineRun(string(se.Stage))
		p.logger.Error("pipeline run failed", "stage", se.Stage, "err", se.Err)
	}
	return err
}

// insightsDate returns the date insight records are filed under. Record IDs
// carry millisecond precision, so one millisecond later is enough to keep
// insight IDs apart from the transcript's chunk IDs.
func insightsDate(transcriptDate time.Time) time.Time {
	return transcriptDate.Truncate(time.Millisecond).Add(time.Millisecond)
}
